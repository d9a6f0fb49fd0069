package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"knit-tracker-backend/internal/apperr"
	"knit-tracker-backend/internal/models"
	"knit-tracker-backend/internal/repository"
)

type mapCache struct {
	entries map[uuid.UUID]*models.AnalyticsSummary
	sets    int
}

func (c *mapCache) Get(_ context.Context, id uuid.UUID) (*models.AnalyticsSummary, bool) {
	s, ok := c.entries[id]
	return s, ok
}

func (c *mapCache) Set(_ context.Context, id uuid.UUID, s *models.AnalyticsSummary) {
	c.entries[id] = s
	c.sets++
}

func (c *mapCache) Invalidate(_ context.Context, id uuid.UUID) {
	delete(c.entries, id)
}

func TestService_Summary_ForbidsOtherUsers(t *testing.T) {
	svc := NewService(repository.NewMemory(), &mapCache{entries: map[uuid.UUID]*models.AnalyticsSummary{}}, zap.NewNop())

	_, err := svc.Summary(context.Background(), uuid.New(), uuid.New())

	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestService_Summary_ComputesAndCaches(t *testing.T) {
	ctx := context.Background()
	now := date(2024, 2, 20)
	store := repository.NewMemory().WithClock(func() time.Time { return now })
	c := &mapCache{entries: map[uuid.UUID]*models.AnalyticsSummary{}}
	svc := NewService(store, c, zap.NewNop()).WithClock(func() time.Time { return now })
	userID := uuid.New()

	pattern := &models.Pattern{ID: uuid.New(), UserID: userID, Name: "Raglan", Text: "..."}
	require.NoError(t, store.CreatePattern(ctx, pattern))
	require.NoError(t, store.CreateProject(ctx, &models.Project{
		ID: uuid.New(), UserID: userID, Name: "One", PatternID: &pattern.ID,
		StartedAt: date(2024, 1, 5), FinishedAt: ptr(date(2024, 1, 20)),
	}))
	require.NoError(t, store.CreateProject(ctx, &models.Project{
		ID: uuid.New(), UserID: userID, Name: "Two", StartedAt: date(2024, 2, 1),
	}))
	require.NoError(t, store.CreateProject(ctx, &models.Project{
		ID: uuid.New(), UserID: uuid.New(), Name: "Someone else's", StartedAt: date(2024, 2, 1),
	}))

	summary, err := svc.Summary(ctx, userID, userID)
	require.NoError(t, err)

	assert.Equal(t, models.CompletionRate{Percentage: 50, Completed: 1, Total: 2}, summary.CompletionRate)
	assert.Equal(t, []models.PatternUsage{{PatternID: pattern.ID.String(), PatternName: "Raglan", ProjectCount: 1}}, summary.MostUsedPatterns)
	assert.Equal(t, 1, summary.RecentActivity.PatternsCreated)
	assert.Equal(t, 1, c.sets)

	again, err := svc.Summary(ctx, userID, userID)
	require.NoError(t, err)
	assert.Same(t, summary, again)
	assert.Equal(t, 1, c.sets)
}
