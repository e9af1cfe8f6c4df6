package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/benvon/smart-planner/internal/conversation"
	"github.com/benvon/smart-planner/internal/logger"
	"github.com/benvon/smart-planner/internal/models"
	"github.com/benvon/smart-planner/internal/request"
	"github.com/benvon/smart-planner/internal/services/dispatcher"
	"github.com/benvon/smart-planner/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// MaxMessageTextLength bounds one user utterance
const MaxMessageTextLength = 4000

// MessageProcessor runs one conversational turn
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, req dispatcher.Request) (*dispatcher.Response, error)
}

// SessionStore is the part of the Context Store exposed over HTTP
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*models.ConversationContext, error)
	Delete(ctx context.Context, sessionID string) error
}

// AssistantHandler serves the conversational endpoints
type AssistantHandler struct {
	dispatcher   MessageProcessor
	sessions     SessionStore
	storeTimeout time.Duration
	logger       *zap.Logger
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(d MessageProcessor, sessions SessionStore, storeTimeout time.Duration, log *zap.Logger) *AssistantHandler {
	if storeTimeout <= 0 {
		storeTimeout = dispatcher.DefaultStoreTimeout
	}
	return &AssistantHandler{
		dispatcher:   d,
		sessions:     sessions,
		storeTimeout: storeTimeout,
		logger:       logger.Component(log, "assistant_handler"),
	}
}

// RegisterRoutes registers assistant routes. The router should carry the /assistant prefix.
func (h *AssistantHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/messages", h.PostMessage).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{session_id}", h.GetSession).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{session_id}", h.DeleteSession).Methods(http.MethodDelete)
}

// PostMessageRequest is the body of POST /assistant/messages
type PostMessageRequest struct {
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	Text      string    `json:"text" validate:"max=4000"`
	SessionID string    `json:"session_id,omitempty" validate:"omitempty,max=128,printascii"`
}

// PostMessage dispatches one user message and returns the assistant's answer
func (h *AssistantHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	ctx := request.WithUserID(r.Context(), req.UserID)
	if req.SessionID != "" {
		ctx = request.WithSessionID(ctx, req.SessionID)
	}

	resp, err := h.dispatcher.ProcessMessage(ctx, dispatcher.Request{
		UserID:    req.UserID,
		Text:      validation.SanitizeText(req.Text),
		SessionID: req.SessionID,
	})
	if errors.Is(err, dispatcher.ErrMissingUserID) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "user_id is required")
		return
	}
	if err != nil {
		h.logger.Error("process_message_failed",
			zap.String("request_id", request.RequestID(r.Context())),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", dispatcher.ApologyText)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetSession returns the stored conversation context
func (h *AssistantHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	ctx, cancel := context.WithTimeout(r.Context(), h.storeTimeout)
	defer cancel()

	conv, err := h.sessions.Get(ctx, sessionID)
	if errors.Is(err, conversation.ErrSessionNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "session not found")
		return
	}
	if err != nil {
		h.logger.Warn("get_session_failed",
			zap.String("session_id", logger.Sanitize(sessionID, 128)),
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "conversation store unavailable")
		return
	}

	respondJSON(w, http.StatusOK, conv)
}

// DeleteSession tears the conversation down. Deleting an unknown session succeeds.
func (h *AssistantHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	ctx, cancel := context.WithTimeout(r.Context(), h.storeTimeout)
	defer cancel()

	if err := h.sessions.Delete(ctx, sessionID); err != nil {
		h.logger.Warn("delete_session_failed",
			zap.String("session_id", logger.Sanitize(sessionID, 128)),
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "conversation store unavailable")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
