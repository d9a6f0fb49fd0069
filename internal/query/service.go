// Package query provides user-scoped reads and searches over patterns and
// projects. Every method takes the owner explicitly; nothing here can read
// across users.
package query

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"knit-tracker-backend/internal/models"
)

type Store interface {
	ListProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	ListPatterns(ctx context.Context, userID uuid.UUID) ([]models.Pattern, error)
	GetProject(ctx context.Context, userID, projectID uuid.UUID) (*models.Project, error)
	GetPattern(ctx context.Context, userID, patternID uuid.UUID) (*models.Pattern, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) ListProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	return s.store.ListProjects(ctx, userID)
}

func (s *Service) ListPatterns(ctx context.Context, userID uuid.UUID) ([]models.Pattern, error) {
	return s.store.ListPatterns(ctx, userID)
}

func (s *Service) GetProject(ctx context.Context, userID, projectID uuid.UUID) (*models.Project, error) {
	return s.store.GetProject(ctx, userID, projectID)
}

func (s *Service) GetPattern(ctx context.Context, userID, patternID uuid.UUID) (*models.Pattern, error) {
	return s.store.GetPattern(ctx, userID, patternID)
}

// SearchPatterns matches q case-insensitively against pattern names. An empty
// q returns every pattern of the user.
func (s *Service) SearchPatterns(ctx context.Context, userID uuid.UUID, q string) ([]models.Pattern, error) {
	patterns, err := s.store.ListPatterns(ctx, userID)
	if err != nil {
		return nil, err
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return patterns, nil
	}

	out := []models.Pattern{}
	for _, p := range patterns {
		if containsFold(p.Name, q) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) SearchProjects(ctx context.Context, userID uuid.UUID, f ProjectFilter) ([]models.Project, error) {
	projects, err := s.store.ListProjects(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := []models.Project{}
	for i := range projects {
		if f.Match(&projects[i]) {
			out = append(out, projects[i])
		}
	}
	return out, nil
}
