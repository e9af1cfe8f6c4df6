package queue

import (
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-planner/internal/models"
	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeTimelineGeneration pre-generates one user's plan for one day
	JobTypeTimelineGeneration JobType = "timeline_generation"
)

// Metadata keys for timeline generation jobs
const (
	MetadataDate = "date"
	MetadataMood = "mood"
)

// DefaultMaxRetries bounds how often a falling-back generation is re-enqueued.
const DefaultMaxRetries = 3

// ErrInvalidJob marks a job whose payload can never be processed.
var ErrInvalidJob = errors.New("invalid job")

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	UserID     uuid.UUID      `json:"user_id"`
	NotBefore  *time.Time     `json:"not_before,omitempty"` // nil = immediate
	NotAfter   *time.Time     `json:"not_after,omitempty"`  // nil = no expiration
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, userID uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}
}

// NewTimelineJob creates a generation job for date (YYYY-MM-DD). The job expires at the end of
// that day since a plan for a past day is useless.
func NewTimelineJob(userID uuid.UUID, date string, mood models.Mood) (*Job, error) {
	day, ok := models.ParseDate(date)
	if !ok {
		return nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidJob, date)
	}
	if mood == "" {
		mood = models.MoodNeutral
	}
	if !mood.IsValid() {
		return nil, fmt.Errorf("%w: unknown mood %q", ErrInvalidJob, mood)
	}

	job := NewJob(JobTypeTimelineGeneration, userID)
	job.Metadata[MetadataDate] = date
	job.Metadata[MetadataMood] = string(mood)
	expires := day.AddDate(0, 0, 1)
	job.NotAfter = &expires
	return job, nil
}

// TimelineTarget decodes the date and mood of a timeline generation job.
func (j *Job) TimelineTarget() (time.Time, models.Mood, error) {
	if j.Type != JobTypeTimelineGeneration {
		return time.Time{}, "", fmt.Errorf("%w: type %q", ErrInvalidJob, j.Type)
	}
	if j.UserID == uuid.Nil {
		return time.Time{}, "", fmt.Errorf("%w: missing user id", ErrInvalidJob)
	}
	raw, _ := j.Metadata[MetadataDate].(string)
	day, ok := models.ParseDate(raw)
	if !ok {
		return time.Time{}, "", fmt.Errorf("%w: date %q", ErrInvalidJob, raw)
	}
	mood := models.MoodNeutral
	if s, _ := j.Metadata[MetadataMood].(string); s != "" {
		mood = models.Mood(s)
	}
	if !mood.IsValid() {
		return time.Time{}, "", fmt.Errorf("%w: mood %q", ErrInvalidJob, mood)
	}
	return day, mood, nil
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()

	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}

	return !j.IsExpired()
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}

	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// Retry returns a copy scheduled delay from now with the retry count incremented.
func (j *Job) Retry(delay time.Duration) *Job {
	next := *j
	next.RetryCount++
	at := time.Now().Add(delay)
	next.NotBefore = &at
	next.Metadata = make(map[string]any, len(j.Metadata))
	for k, v := range j.Metadata {
		next.Metadata[k] = v
	}
	return &next
}
