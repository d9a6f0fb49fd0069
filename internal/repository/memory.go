package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"knit-tracker-backend/internal/apperr"
	"knit-tracker-backend/internal/models"
)

// Memory is a process-local store used when no database is configured and
// in tests. Lists come back in insertion order.
type Memory struct {
	mu       sync.RWMutex
	now      func() time.Time
	projects map[uuid.UUID]*models.Project
	patterns map[uuid.UUID]*models.Pattern
	users    map[uuid.UUID]*models.User
	order    []uuid.UUID
	porder   []uuid.UUID
}

func NewMemory() *Memory {
	return &Memory{
		now:      time.Now,
		projects: make(map[uuid.UUID]*models.Project),
		patterns: make(map[uuid.UUID]*models.Pattern),
		users:    make(map[uuid.UUID]*models.User),
	}
}

// WithClock replaces the timestamp source.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) CreateProject(_ context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[p.ID]; ok {
		return fmt.Errorf("project %s already exists", p.ID)
	}
	now := m.now().UTC()
	p.CreatedAt, p.UpdatedAt, p.Version = now, now, 1
	m.projects[p.ID] = p.Clone()
	m.order = append(m.order, p.ID)
	return nil
}

func (m *Memory) GetProject(_ context.Context, userID, projectID uuid.UUID) (*models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[projectID]
	if !ok || p.UserID != userID {
		return nil, fmt.Errorf("project %s: %w", projectID, apperr.ErrNotFound)
	}
	return p.Clone(), nil
}

func (m *Memory) ListProjects(_ context.Context, userID uuid.UUID) ([]models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.Project{}
	for _, id := range m.order {
		if p := m.projects[id]; p.UserID == userID {
			out = append(out, *p.Clone())
		}
	}
	return out, nil
}

func (m *Memory) UpdateProject(_ context.Context, p *models.Project, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.projects[p.ID]
	if !ok || cur.UserID != p.UserID {
		return fmt.Errorf("project %s: %w", p.ID, apperr.ErrNotFound)
	}
	if expectedVersion > 0 && cur.Version != expectedVersion {
		return fmt.Errorf("project %s: %w", p.ID, apperr.ErrConflict)
	}

	p.Version = cur.Version + 1
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = m.now().UTC()
	m.projects[p.ID] = p.Clone()
	return nil
}

func (m *Memory) DeleteProject(_ context.Context, userID, projectID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[projectID]
	if !ok || p.UserID != userID {
		return fmt.Errorf("project %s: %w", projectID, apperr.ErrNotFound)
	}
	delete(m.projects, projectID)
	m.order = slices.DeleteFunc(m.order, func(id uuid.UUID) bool { return id == projectID })
	return nil
}

func clonePattern(p *models.Pattern) *models.Pattern {
	cp := *p
	cp.Tags = append([]string(nil), p.Tags...)
	cp.Images = append(models.Images(nil), p.Images...)
	return &cp
}

func (m *Memory) CreatePattern(_ context.Context, p *models.Pattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.patterns[p.ID]; ok {
		return fmt.Errorf("pattern %s already exists", p.ID)
	}
	p.CreatedAt = m.now().UTC()
	m.patterns[p.ID] = clonePattern(p)
	m.porder = append(m.porder, p.ID)
	return nil
}

func (m *Memory) GetPattern(_ context.Context, userID, patternID uuid.UUID) (*models.Pattern, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.patterns[patternID]
	if !ok || p.UserID != userID {
		return nil, fmt.Errorf("pattern %s: %w", patternID, apperr.ErrNotFound)
	}
	return clonePattern(p), nil
}

func (m *Memory) ListPatterns(_ context.Context, userID uuid.UUID) ([]models.Pattern, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.Pattern{}
	for _, id := range m.porder {
		if p := m.patterns[id]; p.UserID == userID {
			out = append(out, *clonePattern(p))
		}
	}
	return out, nil
}

func (m *Memory) DeletePattern(_ context.Context, userID, patternID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.patterns[patternID]
	if !ok || p.UserID != userID {
		return 0, fmt.Errorf("pattern %s: %w", patternID, apperr.ErrNotFound)
	}

	detached := 0
	now := m.now().UTC()
	for _, proj := range m.projects {
		if proj.UserID == userID && proj.PatternID != nil && *proj.PatternID == patternID {
			proj.PatternID = nil
			proj.Version++
			proj.UpdatedAt = now
			detached++
		}
	}
	delete(m.patterns, patternID)
	m.porder = slices.DeleteFunc(m.porder, func(id uuid.UUID) bool { return id == patternID })
	return detached, nil
}

func (m *Memory) user(id uuid.UUID) *models.User {
	u, ok := m.users[id]
	if !ok {
		u = &models.User{ID: id}
		m.users[id] = u
	}
	return u
}

func (m *Memory) AddProjectRef(_ context.Context, userID, projectID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(userID)
	u.ProjectIDs = append(u.ProjectIDs, projectID)
	return nil
}

func (m *Memory) RemoveProjectRef(_ context.Context, userID, projectID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(userID)
	u.ProjectIDs = slices.DeleteFunc(u.ProjectIDs, func(id uuid.UUID) bool { return id == projectID })
	return nil
}

func (m *Memory) AddPatternRef(_ context.Context, userID, patternID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(userID)
	u.PatternIDs = append(u.PatternIDs, patternID)
	return nil
}

func (m *Memory) RemovePatternRef(_ context.Context, userID, patternID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(userID)
	u.PatternIDs = slices.DeleteFunc(u.PatternIDs, func(id uuid.UUID) bool { return id == patternID })
	return nil
}

func (m *Memory) AddUploadBytes(_ context.Context, userID uuid.UUID, n int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(userID).UploadBytes += n
	return nil
}

func (m *Memory) GetUser(_ context.Context, userID uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}
	cp := *u
	cp.PatternIDs = append([]uuid.UUID(nil), u.PatternIDs...)
	cp.ProjectIDs = append([]uuid.UUID(nil), u.ProjectIDs...)
	return &cp, nil
}
