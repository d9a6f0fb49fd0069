// Package patterns handles creating and deleting knitting patterns.
package patterns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"knit-tracker-backend/internal/apperr"
	"knit-tracker-backend/internal/cache"
	"knit-tracker-backend/internal/models"
	"knit-tracker-backend/internal/storage"
)

type Store interface {
	CreatePattern(ctx context.Context, p *models.Pattern) error
	GetPattern(ctx context.Context, userID, patternID uuid.UUID) (*models.Pattern, error)
	DeletePattern(ctx context.Context, userID, patternID uuid.UUID) (int, error)
	AddPatternRef(ctx context.Context, userID, patternID uuid.UUID) error
	RemovePatternRef(ctx context.Context, userID, patternID uuid.UUID) error
	AddUploadBytes(ctx context.Context, userID uuid.UUID, n int64) error
}

type Service struct {
	store  Store
	assets storage.Store
	cache  cache.AnalyticsCache
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, assets storage.Store, analyticsCache cache.AnalyticsCache, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		assets: assets,
		cache:  analyticsCache,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type CreateInput struct {
	Name   string
	Text   string
	Link   string
	Tags   []string
	Notes  string
	Images []models.ImageFile
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.Pattern, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name", "is required")
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, apperr.Validation("text", "is required")
	}

	images, err := models.PrepareImages(in.Images, s.now().UTC())
	if err != nil {
		return nil, err
	}

	p := &models.Pattern{
		ID:     uuid.New(),
		UserID: userID,
		Name:   name,
		Text:   text,
		Link:   strings.TrimSpace(in.Link),
		Tags:   models.NormalizeTags(in.Tags),
		Notes:  strings.TrimSpace(in.Notes),
		Images: images,
	}
	if err := s.store.CreatePattern(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create pattern: %w", err)
	}

	if err := s.store.AddPatternRef(ctx, userID, p.ID); err != nil {
		s.logger.Error("failed to add pattern back-reference",
			zap.String("user_id", userID.String()),
			zap.String("pattern_id", p.ID.String()),
			zap.Error(err),
		)
	}
	if n := images.TotalBytes(); n > 0 {
		if err := s.store.AddUploadBytes(ctx, userID, n); err != nil {
			s.logger.Warn("failed to update upload byte counter",
				zap.String("user_id", userID.String()),
				zap.Int64("bytes", n),
				zap.Error(err),
			)
		}
	}
	s.cache.Invalidate(ctx, userID)
	return p, nil
}

// Delete destroys the pattern's images best-effort, then removes the record.
// Projects that referenced the pattern keep existing with no pattern.
func (s *Service) Delete(ctx context.Context, userID, patternID uuid.UUID) ([]models.Warning, error) {
	p, err := s.store.GetPattern(ctx, userID, patternID)
	if err != nil {
		return nil, err
	}

	warnings := storage.DestroyAll(ctx, s.assets, p.Images, s.logger)

	detached, err := s.store.DeletePattern(ctx, userID, patternID)
	if err != nil {
		return warnings, err
	}
	if err := s.store.RemovePatternRef(ctx, userID, patternID); err != nil {
		s.logger.Error("failed to remove pattern back-reference",
			zap.String("user_id", userID.String()),
			zap.String("pattern_id", patternID.String()),
			zap.Error(err),
		)
	}
	s.cache.Invalidate(ctx, userID)

	s.logger.Info("pattern deleted",
		zap.String("user_id", userID.String()),
		zap.String("pattern_id", patternID.String()),
		zap.Int("projects_detached", detached),
		zap.Int("warnings", len(warnings)),
	)
	return warnings, nil
}
