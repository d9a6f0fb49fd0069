package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"knit-tracker-backend/internal/apperr"
	"knit-tracker-backend/internal/cache"
	"knit-tracker-backend/internal/models"
)

type Store interface {
	ListProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	ListPatterns(ctx context.Context, userID uuid.UUID) ([]models.Pattern, error)
}

type Service struct {
	store  Store
	cache  cache.AnalyticsCache
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, analyticsCache cache.AnalyticsCache, logger *zap.Logger) *Service {
	return &Service{store: store, cache: analyticsCache, logger: logger, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Summary returns userID's analytics. Only the owner may read them.
func (s *Service) Summary(ctx context.Context, caller, userID uuid.UUID) (*models.AnalyticsSummary, error) {
	if caller != userID {
		return nil, apperr.ErrForbidden
	}

	if cached, ok := s.cache.Get(ctx, userID); ok {
		return cached, nil
	}

	projects, err := s.store.ListProjects(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	patterns, err := s.store.ListPatterns(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	summary := Compute(userID, projects, patterns, s.now())
	// A mutation that invalidates between the reads above and this Set is
	// lost; the stale summary lives until the TTL expires.
	s.cache.Set(ctx, userID, &summary)

	s.logger.Debug("analytics computed",
		zap.String("user_id", userID.String()),
		zap.Int("projects", len(projects)),
		zap.Int("patterns", len(patterns)),
	)
	return &summary, nil
}
