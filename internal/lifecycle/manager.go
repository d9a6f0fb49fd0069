// Package lifecycle owns the project state machine: starting, editing and
// finishing a project, its row trackers and its deletion.
//
// A project is InProgress while FinishedAt is nil and Finished afterwards.
// There is no transition back; finishing a finished project amends the
// finish record instead.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"knit-tracker-backend/internal/apperr"
	"knit-tracker-backend/internal/cache"
	"knit-tracker-backend/internal/metrics"
	"knit-tracker-backend/internal/models"
	"knit-tracker-backend/internal/rowtracker"
	"knit-tracker-backend/internal/storage"
)

type Store interface {
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, userID, projectID uuid.UUID) (*models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project, expectedVersion int) error
	DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error
	GetPattern(ctx context.Context, userID, patternID uuid.UUID) (*models.Pattern, error)
	AddProjectRef(ctx context.Context, userID, projectID uuid.UUID) error
	RemoveProjectRef(ctx context.Context, userID, projectID uuid.UUID) error
	AddUploadBytes(ctx context.Context, userID uuid.UUID, n int64) error
}

var errFinished = apperr.Validation("rowTrackers", "project is finished")

type Manager struct {
	store  Store
	assets storage.Store
	cache  cache.AnalyticsCache
	logger *zap.Logger
	now    func() time.Time
}

func NewManager(store Store, assets storage.Store, analyticsCache cache.AnalyticsCache, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		assets: assets,
		cache:  analyticsCache,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for default dates.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

type StartInput struct {
	Name        string
	PatternID   *uuid.UUID
	Notes       string
	Tags        []string
	StartedAt   string
	RowTrackers []models.TrackerDraft
	Images      []models.ImageFile
}

func (m *Manager) Start(ctx context.Context, userID uuid.UUID, in StartInput) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name", "is required")
	}

	now := m.now().UTC()
	startedAt := now
	if strings.TrimSpace(in.StartedAt) != "" {
		t, _, err := models.ParseDate("startedAt", in.StartedAt)
		if err != nil {
			return nil, err
		}
		startedAt = t.UTC()
	}

	if err := m.checkPattern(ctx, userID, in.PatternID); err != nil {
		return nil, err
	}

	images, err := models.PrepareImages(in.Images, now)
	if err != nil {
		return nil, err
	}

	trackers := rowtracker.NormalizeForSave(in.RowTrackers)
	if len(trackers) == 0 {
		trackers = []models.RowTracker{{Section: rowtracker.DefaultSection}}
	}

	p := &models.Project{
		ID:          uuid.New(),
		UserID:      userID,
		PatternID:   in.PatternID,
		Name:        name,
		Notes:       strings.TrimSpace(in.Notes),
		Tags:        models.NormalizeTags(in.Tags),
		Images:      images,
		RowTrackers: trackers,
		StartedAt:   startedAt,
	}
	if err := m.store.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	if err := m.store.AddProjectRef(ctx, userID, p.ID); err != nil {
		m.logger.Error("failed to add project back-reference",
			zap.String("user_id", userID.String()),
			zap.String("project_id", p.ID.String()),
			zap.Error(err),
		)
	}
	m.countUpload(ctx, userID, images)
	m.changed(ctx, userID, "start")

	m.logger.Info("project started",
		zap.String("user_id", userID.String()),
		zap.String("project_id", p.ID.String()),
		zap.Int("trackers", len(p.RowTrackers)),
	)
	return p, nil
}

type EditInput struct {
	Name           *string
	Notes          *string
	Tags           *[]string
	Pattern        models.OptionalUUID
	RowTrackers    *[]models.TrackerDraft
	Images         []models.ImageFile
	RemoveImageIDs []string
	// Version > 0 makes the write conditional on the stored version.
	Version int
}

// Edit applies a partial update. Image removals are carried out against the
// asset store only after the project write succeeds.
func (m *Manager) Edit(ctx context.Context, userID, projectID uuid.UUID, in EditInput) (*models.Project, []models.Warning, error) {
	current, err := m.store.GetProject(ctx, userID, projectID)
	if err != nil {
		return nil, nil, err
	}
	p := current.Clone()
	now := m.now().UTC()

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, nil, apperr.Validation("name", "is required")
		}
		p.Name = name
	}
	if in.Notes != nil {
		p.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.Tags != nil {
		p.Tags = models.NormalizeTags(*in.Tags)
	}
	if in.Pattern.Set {
		if err := m.checkPattern(ctx, userID, in.Pattern.ID); err != nil {
			return nil, nil, err
		}
		p.PatternID = in.Pattern.ID
	}
	if in.RowTrackers != nil {
		if !p.RowsEditable() {
			return nil, nil, errFinished
		}
		p.RowTrackers = rowtracker.NormalizeForSave(*in.RowTrackers)
	}

	var removed models.Images
	if len(in.RemoveImageIDs) > 0 {
		p.Images, removed, err = splitImages(p.Images, in.RemoveImageIDs)
		if err != nil {
			return nil, nil, err
		}
	}

	added, err := models.PrepareImages(in.Images, now)
	if err != nil {
		return nil, nil, err
	}
	p.Images = append(p.Images, added...)

	if err := m.store.UpdateProject(ctx, p, in.Version); err != nil {
		return nil, nil, err
	}

	warnings := storage.DestroyAll(ctx, m.assets, removed, m.logger)
	m.countUpload(ctx, userID, added)
	m.changed(ctx, userID, "edit")
	return p, warnings, nil
}

type FinishInput struct {
	// Nil keeps the current name; a blank name is rejected.
	Name                 *string
	FinishedAt           string
	Notes                *string
	Images               []models.ImageFile
	DeleteExistingImages bool
	Version              int
}

// Finish moves the project to Finished. With DeleteExistingImages every
// previously attached image is destroyed and only the new images are kept;
// otherwise new images are appended. Asset failures become warnings.
func (m *Manager) Finish(ctx context.Context, userID, projectID uuid.UUID, in FinishInput) (*models.Project, []models.Warning, error) {
	if strings.TrimSpace(in.FinishedAt) == "" {
		return nil, nil, apperr.Validation("finishedAt", "is required")
	}
	finishedAt, _, err := models.ParseDate("finishedAt", in.FinishedAt)
	if err != nil {
		return nil, nil, err
	}
	finishedAt = finishedAt.UTC()

	current, err := m.store.GetProject(ctx, userID, projectID)
	if err != nil {
		return nil, nil, err
	}
	p := current.Clone()

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, nil, apperr.Validation("name", "is required")
		}
		p.Name = name
	}
	if day(finishedAt).Before(day(p.StartedAt)) {
		return nil, nil, apperr.Validation("finishedAt", "must not be before the start date")
	}
	// A date-only finish on the start day parses to midnight.
	if finishedAt.Before(p.StartedAt) {
		finishedAt = p.StartedAt.UTC()
	}

	if in.Notes != nil {
		if notes := strings.TrimSpace(*in.Notes); notes != "" {
			p.Notes = notes
		}
	}

	added, err := models.PrepareImages(in.Images, m.now().UTC())
	if err != nil {
		return nil, nil, err
	}

	var toDestroy models.Images
	if in.DeleteExistingImages {
		toDestroy = p.Images
		p.Images = added
	} else {
		p.Images = append(p.Images, added...)
	}

	wasFinished := p.IsFinished()
	p.FinishedAt = &finishedAt
	if err := m.store.UpdateProject(ctx, p, in.Version); err != nil {
		return nil, nil, err
	}

	warnings := storage.DestroyAll(ctx, m.assets, toDestroy, m.logger)
	m.countUpload(ctx, userID, added)
	m.changed(ctx, userID, "finish")

	m.logger.Info("project finished",
		zap.String("user_id", userID.String()),
		zap.String("project_id", p.ID.String()),
		zap.Bool("amended", wasFinished),
		zap.Int("images_destroyed", len(toDestroy)-len(warnings)),
		zap.Int("warnings", len(warnings)),
	)
	return p, warnings, nil
}

// Delete removes the project's image assets best-effort, then the record,
// then the owner's back-reference.
func (m *Manager) Delete(ctx context.Context, userID, projectID uuid.UUID) ([]models.Warning, error) {
	p, err := m.store.GetProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	warnings := storage.DestroyAll(ctx, m.assets, p.Images, m.logger)

	if err := m.store.DeleteProject(ctx, userID, projectID); err != nil {
		return warnings, err
	}
	if err := m.store.RemoveProjectRef(ctx, userID, projectID); err != nil {
		m.logger.Error("failed to remove project back-reference",
			zap.String("user_id", userID.String()),
			zap.String("project_id", projectID.String()),
			zap.Error(err),
		)
	}
	m.changed(ctx, userID, "delete")
	return warnings, nil
}

func (m *Manager) AddTracker(ctx context.Context, userID, projectID uuid.UUID, version int) (*models.Project, error) {
	return m.mutateTrackers(ctx, userID, projectID, version, func(ts []models.RowTracker) ([]models.RowTracker, error) {
		return rowtracker.Add(ts), nil
	})
}

func (m *Manager) RemoveTracker(ctx context.Context, userID, projectID uuid.UUID, index, version int) (*models.Project, error) {
	return m.mutateTrackers(ctx, userID, projectID, version, func(ts []models.RowTracker) ([]models.RowTracker, error) {
		return rowtracker.Remove(ts, index)
	})
}

func (m *Manager) UpdateTracker(ctx context.Context, userID, projectID uuid.UUID, index int, updates []rowtracker.Update, version int) (*models.Project, error) {
	return m.mutateTrackers(ctx, userID, projectID, version, func(ts []models.RowTracker) ([]models.RowTracker, error) {
		return rowtracker.ApplyAll(ts, index, updates)
	})
}

func (m *Manager) mutateTrackers(ctx context.Context, userID, projectID uuid.UUID, version int, fn func([]models.RowTracker) ([]models.RowTracker, error)) (*models.Project, error) {
	current, err := m.store.GetProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if !current.RowsEditable() {
		return nil, errFinished
	}

	trackers, err := fn(current.RowTrackers)
	if errors.Is(err, rowtracker.ErrIndexOutOfRange) {
		return nil, apperr.Validation("index", "tracker index out of range")
	}
	if err != nil {
		return nil, err
	}

	p := current.Clone()
	p.RowTrackers = trackers
	if err := m.store.UpdateProject(ctx, p, version); err != nil {
		return nil, err
	}
	m.changed(ctx, userID, "tracker")
	return p, nil
}

func (m *Manager) checkPattern(ctx context.Context, userID uuid.UUID, patternID *uuid.UUID) error {
	if patternID == nil {
		return nil
	}
	if _, err := m.store.GetPattern(ctx, userID, *patternID); err != nil {
		return fmt.Errorf("pattern reference: %w", err)
	}
	return nil
}

func (m *Manager) countUpload(ctx context.Context, userID uuid.UUID, images models.Images) {
	n := images.TotalBytes()
	if n == 0 {
		return
	}
	if err := m.store.AddUploadBytes(ctx, userID, n); err != nil {
		m.logger.Warn("failed to update upload byte counter",
			zap.String("user_id", userID.String()),
			zap.Int64("bytes", n),
			zap.Error(err),
		)
	}
}

func (m *Manager) changed(ctx context.Context, userID uuid.UUID, op string) {
	m.cache.Invalidate(ctx, userID)
	metrics.RecordProjectTransition(op)
}

func splitImages(images models.Images, removeIDs []string) (kept, removed models.Images, err error) {
	remove := make(map[string]bool, len(removeIDs))
	for _, id := range removeIDs {
		remove[id] = false
	}
	for _, img := range images {
		if _, ok := remove[img.PublicID]; ok {
			remove[img.PublicID] = true
			removed = append(removed, img)
			continue
		}
		kept = append(kept, img)
	}
	for id, found := range remove {
		if !found {
			return nil, nil, apperr.Validation("removeImageIds", fmt.Sprintf("unknown image %q", id))
		}
	}
	return kept, removed, nil
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
