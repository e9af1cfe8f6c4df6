package preferences

import (
	"context"
	"errors"
	"time"

	"github.com/benvon/smart-planner/internal/database"
	"github.com/benvon/smart-planner/internal/logger"
	"github.com/benvon/smart-planner/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reader is the subset of the Preference Store the engine needs
type Reader interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserPreferences, error)
}

// Service resolves preferences, substituting defaults when the store has none or fails
type Service struct {
	repo    Reader
	timeout time.Duration
	logger  *zap.Logger
}

// NewService creates a preference service. A nil repo always yields defaults.
func NewService(repo Reader, timeout time.Duration, log *zap.Logger) *Service {
	return &Service{repo: repo, timeout: timeout, logger: logger.Component(log, "preferences")}
}

// Get never fails.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) models.UserPreferences {
	if s == nil || s.repo == nil {
		return models.DefaultPreferences(userID)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	prefs, err := s.repo.GetByUserID(ctx, userID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return models.DefaultPreferences(userID)
	case err != nil:
		s.logger.Warn("preferences_lookup_failed",
			zap.String("user", logger.HashID(userID.String())),
			zap.String("error", logger.SanitizeError(err)),
		)
		return models.DefaultPreferences(userID)
	case prefs == nil:
		return models.DefaultPreferences(userID)
	}

	out := *prefs
	out.UserID = userID
	return out
}
