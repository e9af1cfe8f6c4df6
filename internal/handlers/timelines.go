package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/benvon/smart-planner/internal/database"
	"github.com/benvon/smart-planner/internal/logger"
	"github.com/benvon/smart-planner/internal/models"
	"github.com/benvon/smart-planner/internal/queue"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TimelineReader loads stored plans
type TimelineReader interface {
	GetByUserAndDate(ctx context.Context, userID uuid.UUID, date string) (*models.StoredTimeline, error)
}

// TimelineHandler serves stored timelines and queues background generation
type TimelineHandler struct {
	timelines    TimelineReader
	jobQueue     queue.Enqueuer
	storeTimeout time.Duration
	logger       *zap.Logger
}

// NewTimelineHandler creates a timeline handler. A nil jobQueue makes generate answer 503.
func NewTimelineHandler(timelines TimelineReader, jobQueue queue.Enqueuer, storeTimeout time.Duration, log *zap.Logger) *TimelineHandler {
	if storeTimeout <= 0 {
		storeTimeout = 3 * time.Second
	}
	return &TimelineHandler{
		timelines:    timelines,
		jobQueue:     jobQueue,
		storeTimeout: storeTimeout,
		logger:       logger.Component(log, "timeline_handler"),
	}
}

// RegisterRoutes registers timeline routes. The router should carry the /users prefix.
func (h *TimelineHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{user_id}/timelines/{date}", h.GetTimeline).Methods(http.MethodGet)
	r.HandleFunc("/{user_id}/timelines/{date}/generate", h.GenerateTimeline).Methods(http.MethodPost)
}

// GenerateTimelineRequest is the optional body of the generate endpoint
type GenerateTimelineRequest struct {
	Mood models.Mood `json:"mood,omitempty" validate:"omitempty,mood"`
}

// GenerateTimelineResponse acknowledges a queued job
type GenerateTimelineResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	UserID uuid.UUID `json:"user_id"`
	Date   string    `json:"date"`
	Mood   string    `json:"mood"`
	Status string    `json:"status"`
}

func parseTimelineVars(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	vars := mux.Vars(r)
	userID, err := uuid.Parse(vars["user_id"])
	if err != nil || userID == uuid.Nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "user_id must be a UUID")
		return uuid.Nil, "", false
	}
	date := vars["date"]
	if _, ok := models.ParseDate(date); !ok {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "date must be YYYY-MM-DD")
		return uuid.Nil, "", false
	}
	return userID, date, true
}

// GetTimeline returns the plan stored for a user and day
func (h *TimelineHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	userID, date, ok := parseTimelineVars(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.storeTimeout)
	defer cancel()

	stored, err := h.timelines.GetByUserAndDate(ctx, userID, date)
	if errors.Is(err, database.ErrNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "no timeline stored for this date")
		return
	}
	if err != nil {
		h.logger.Warn("get_timeline_failed",
			zap.String("user", logger.HashID(userID.String())),
			zap.String("date", date),
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "timeline store unavailable")
		return
	}

	respondJSON(w, http.StatusOK, stored)
}

// GenerateTimeline queues a background generation job and answers 202
func (h *TimelineHandler) GenerateTimeline(w http.ResponseWriter, r *http.Request) {
	userID, date, ok := parseTimelineVars(w, r)
	if !ok {
		return
	}

	var req GenerateTimelineRequest
	if !decodeAndValidate(w, r, &req, true) {
		return
	}

	if h.jobQueue == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "background generation is not configured")
		return
	}

	job, err := queue.NewTimelineJob(userID, date, req.Mood)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if job.IsExpired() {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "date is in the past")
		return
	}

	if err := h.jobQueue.Enqueue(r.Context(), job); err != nil {
		h.logger.Error("enqueue_timeline_job_failed",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "failed to queue generation")
		return
	}

	h.logger.Info("timeline_job_queued",
		zap.String("job_id", job.ID.String()),
		zap.String("user", logger.HashID(userID.String())),
		zap.String("date", date),
	)
	mood, _ := job.Metadata[queue.MetadataMood].(string)
	respondJSON(w, http.StatusAccepted, GenerateTimelineResponse{
		JobID:  job.ID,
		UserID: userID,
		Date:   date,
		Mood:   mood,
		Status: "queued",
	})
}
