// Package workers holds background job processors.
package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-planner/internal/logger"
	"github.com/benvon/smart-planner/internal/metrics"
	"github.com/benvon/smart-planner/internal/models"
	"github.com/benvon/smart-planner/internal/queue"
	"github.com/benvon/smart-planner/internal/services/ai"
	"github.com/benvon/smart-planner/internal/services/synthesis"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job results recorded in metrics
const (
	ResultGenerated    = "generated"
	ResultRetried      = "retried"
	ResultDeadLettered = "dead_lettered"
	ResultInvalid      = "invalid"
)

// TimelineGenerator produces and stores a plan
type TimelineGenerator interface {
	Synthesize(ctx context.Context, userID uuid.UUID, prefs models.UserPreferences, mood models.Mood, date time.Time) synthesis.TimelineResult
}

// PreferenceSource resolves preferences and never fails
type PreferenceSource interface {
	Get(ctx context.Context, userID uuid.UUID) models.UserPreferences
}

// TimelinePregenerator processes timeline_generation jobs. A job only succeeds when a generated
// plan was stored; fallbacks are retried later with a delay chosen from the generator error.
type TimelinePregenerator struct {
	timelines TimelineGenerator
	prefs     PreferenceSource
	jobQueue  queue.Enqueuer
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewTimelinePregenerator creates the worker. jobQueue may be nil, in which case failures go
// straight to the DLQ.
func NewTimelinePregenerator(timelines TimelineGenerator, prefs PreferenceSource, jobQueue queue.Enqueuer, log *zap.Logger, m *metrics.Metrics) *TimelinePregenerator {
	return &TimelinePregenerator{
		timelines: timelines,
		prefs:     prefs,
		jobQueue:  jobQueue,
		logger:    logger.Component(log, "pregenerator"),
		metrics:   m,
	}
}

// ProcessJob handles one delivery and always settles it (ack or nack).
func (p *TimelinePregenerator) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	day, mood, err := job.TimelineTarget()
	if err != nil {
		p.metrics.ObserveJob(string(job.Type), ResultInvalid)
		if nackErr := msg.Nack(false); nackErr != nil {
			p.logger.Warn("job_nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("job %s: %w", job.ID, err)
	}

	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("user", logger.HashID(job.UserID.String())),
		zap.String("date", models.FormatDate(day)),
		zap.Int("attempt", job.RetryCount+1),
	}

	prefs := p.prefs.Get(ctx, job.UserID)
	res := p.timelines.Synthesize(ctx, job.UserID, prefs, mood, day)

	failure := res.Err
	if res.Source == synthesis.SourceGenerated {
		failure = res.PersistErr
	}
	if failure == nil {
		p.metrics.ObserveJob(string(job.Type), ResultGenerated)
		p.logger.Info("timeline_pregenerated", append(fields, zap.Int("activities", len(res.Timeline.Activities)))...)
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil
	}

	return p.handleFailure(ctx, msg, job, failure, fields)
}

func (p *TimelinePregenerator) handleFailure(ctx context.Context, msg queue.MessageInterface, job *queue.Job, cause error, fields []zap.Field) error {
	fields = append(fields, zap.String("error", logger.SanitizeError(cause)))

	if job.CanRetry() && p.jobQueue != nil {
		delay := ai.GetRetryDelay(cause, job.RetryCount)
		next := job.Retry(delay)
		err := p.jobQueue.Enqueue(ctx, next)
		if err == nil {
			p.metrics.ObserveJob(string(job.Type), ResultRetried)
			p.logger.Warn("timeline_pregeneration_retry", append(fields, zap.Duration("delay", delay))...)
			if ackErr := msg.Ack(); ackErr != nil {
				p.logger.Warn("job_ack_failed", zap.Error(ackErr))
			}
			return fmt.Errorf("job %s will retry in %v: %w", job.ID, delay, cause)
		}
		cause = errors.Join(cause, fmt.Errorf("re-enqueue: %w", err))
	}

	p.metrics.ObserveJob(string(job.Type), ResultDeadLettered)
	p.logger.Error("timeline_pregeneration_failed", fields...)
	if nackErr := msg.Nack(false); nackErr != nil {
		p.logger.Warn("job_nack_failed", zap.Error(nackErr))
	}
	return fmt.Errorf("job %s failed after %d attempts: %w", job.ID, job.RetryCount+1, cause)
}

// Run processes messages until ctx is done or msgs closes.
func (p *TimelinePregenerator) Run(ctx context.Context, msgs <-chan *queue.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				p.logger.Info("message_channel_closed")
				return
			}
			if err := p.ProcessJob(ctx, msg); err != nil {
				p.logger.Debug("job_not_completed", zap.Error(err))
			}
		}
	}
}
