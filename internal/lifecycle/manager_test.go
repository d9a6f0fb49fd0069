package lifecycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"knit-tracker-backend/internal/apperr"
	"knit-tracker-backend/internal/lifecycle"
	"knit-tracker-backend/internal/models"
	"knit-tracker-backend/internal/repository"
	"knit-tracker-backend/internal/rowtracker"
)

var now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type recordingAssets struct {
	destroyed []string
	failing   map[string]bool
}

func (r *recordingAssets) Destroy(_ context.Context, publicID string) error {
	r.destroyed = append(r.destroyed, publicID)
	if r.failing[publicID] {
		return errors.New("asset backend timeout")
	}
	return nil
}

type recordingCache struct {
	invalidated []uuid.UUID
}

func (c *recordingCache) Get(context.Context, uuid.UUID) (*models.AnalyticsSummary, bool) {
	return nil, false
}

func (c *recordingCache) Set(context.Context, uuid.UUID, *models.AnalyticsSummary) {}

func (c *recordingCache) Invalidate(_ context.Context, userID uuid.UUID) {
	c.invalidated = append(c.invalidated, userID)
}

type fixture struct {
	store  *repository.Memory
	assets *recordingAssets
	cache  *recordingCache
	mgr    *lifecycle.Manager
	userID uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		store:  repository.NewMemory().WithClock(func() time.Time { return now }),
		assets: &recordingAssets{failing: map[string]bool{}},
		cache:  &recordingCache{},
		userID: uuid.New(),
	}
	f.mgr = lifecycle.NewManager(f.store, f.assets, f.cache, zap.NewNop()).
		WithClock(func() time.Time { return now })
	return f
}

func img(id string) models.ImageFile {
	return models.ImageFile{URL: "https://cdn.example.com/" + id + ".jpg", PublicID: id}
}

func (f *fixture) start(t *testing.T, in lifecycle.StartInput) *models.Project {
	t.Helper()
	p, err := f.mgr.Start(context.Background(), f.userID, in)
	require.NoError(t, err)
	return p
}

func TestStart_NormalizesBlankSection(t *testing.T) {
	f := newFixture()

	p := f.start(t, lifecycle.StartInput{
		Name:        "Cardigan",
		RowTrackers: []models.TrackerDraft{{Section: "", TotalRows: "100"}},
	})

	stored, err := f.store.GetProject(context.Background(), f.userID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RowTrackers{{Section: "Main", CurrentRow: 0, TotalRows: 100}}, stored.RowTrackers)
	assert.Equal(t, models.StateInProgress, stored.State())
	assert.Equal(t, now, stored.StartedAt)
}

func TestStart_DefaultTrackerWhenNoneSurvive(t *testing.T) {
	f := newFixture()

	p := f.start(t, lifecycle.StartInput{
		Name:        "Scarf",
		RowTrackers: []models.TrackerDraft{{Section: " ", TotalRows: "abc"}},
	})

	assert.Equal(t, models.RowTrackers{{Section: "Main"}}, p.RowTrackers)
}

func TestStart_Validation(t *testing.T) {
	f := newFixture()

	_, err := f.mgr.Start(context.Background(), f.userID, lifecycle.StartInput{Name: "   "})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)

	_, err = f.mgr.Start(context.Background(), f.userID, lifecycle.StartInput{Name: "Hat", StartedAt: "yesterday"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "startedAt", ve.Field)
}

func TestStart_PatternMustBelongToUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	other := &models.Pattern{ID: uuid.New(), UserID: uuid.New(), Name: "Not mine", Text: "..."}
	require.NoError(t, f.store.CreatePattern(ctx, other))

	_, err := f.mgr.Start(ctx, f.userID, lifecycle.StartInput{Name: "Hat", PatternID: &other.ID})

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStart_TracksUserRefsAndUploads(t *testing.T) {
	f := newFixture()
	size := int64(2048)
	photo := img("cast-on")
	photo.Bytes = &size

	p := f.start(t, lifecycle.StartInput{
		Name:   "Mittens",
		Tags:   []string{" wool ", "gift", "wool", ""},
		Images: []models.ImageFile{photo},
	})

	u, err := f.store.GetUser(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p.ID}, u.ProjectIDs)
	assert.Equal(t, size, u.UploadBytes)
	assert.Equal(t, []string{"wool", "gift"}, p.Tags)
	assert.Equal(t, now, p.Images[0].UploadedAt)
	assert.Equal(t, []uuid.UUID{f.userID}, f.cache.invalidated)
}

func TestFinish_DeleteExistingImages(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.start(t, lifecycle.StartInput{
		Name:      "Sweater",
		StartedAt: "2024-03-01",
		Images:    []models.ImageFile{img("old-1"), img("old-2")},
	})

	finished, warnings, err := f.mgr.Finish(ctx, f.userID, p.ID, lifecycle.FinishInput{
		FinishedAt:           "2024-03-14",
		Images:               []models.ImageFile{img("final")},
		DeleteExistingImages: true,
	})

	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"old-1", "old-2"}, f.assets.destroyed)

	stored, err := f.store.GetProject(ctx, f.userID, p.ID)
	require.NoError(t, err)
	require.Len(t, stored.Images, 1)
	assert.Equal(t, "final", stored.Images[0].PublicID)
	assert.Equal(t, models.StateFinished, stored.State())
	assert.False(t, finished.RowsEditable())
}

func TestFinish_KeepsAndAppendsImages(t *testing.T) {
	f := newFixture()
	p := f.start(t, lifecycle.StartInput{Name: "Socks", StartedAt: "2024-03-01", Images: []models.ImageFile{img("heel")}})

	finished, _, err := f.mgr.Finish(context.Background(), f.userID, p.ID, lifecycle.FinishInput{
		FinishedAt: "2024-03-10",
		Images:     []models.ImageFile{img("toe")},
	})

	require.NoError(t, err)
	assert.Empty(t, f.assets.destroyed)
	require.Len(t, finished.Images, 2)
	assert.Equal(t, "heel", finished.Images[0].PublicID)
	assert.Equal(t, "toe", finished.Images[1].PublicID)
}

func TestFinish_AssetFailureIsAWarning(t *testing.T) {
	f := newFixture()
	f.assets.failing["old-1"] = true
	p := f.start(t, lifecycle.StartInput{
		Name:      "Shawl",
		StartedAt: "2024-03-01",
		Images:    []models.ImageFile{img("old-1"), img("old-2")},
	})

	finished, warnings, err := f.mgr.Finish(context.Background(), f.userID, p.ID, lifecycle.FinishInput{
		FinishedAt:           "2024-03-05",
		DeleteExistingImages: true,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"old-1", "old-2"}, f.assets.destroyed)
	require.Len(t, warnings, 1)
	assert.Equal(t, "old-1", warnings[0].PublicID)
	assert.True(t, finished.IsFinished())
	assert.Empty(t, finished.Images)
}

func TestFinish_NotesPolicy(t *testing.T) {
	f := newFixture()
	p := f.start(t, lifecycle.StartInput{Name: "Hat", Notes: "used 4mm needles", StartedAt: "2024-03-01"})
	blank := "   "

	finished, _, err := f.mgr.Finish(context.Background(), f.userID, p.ID, lifecycle.FinishInput{
		FinishedAt: "2024-03-02",
		Notes:      &blank,
	})
	require.NoError(t, err)
	assert.Equal(t, "used 4mm needles", finished.Notes)

	final := "  blocked to 22cm  "
	finished, _, err = f.mgr.Finish(context.Background(), f.userID, p.ID, lifecycle.FinishInput{
		FinishedAt: "2024-03-03",
		Notes:      &final,
	})
	require.NoError(t, err)
	assert.Equal(t, "blocked to 22cm", finished.Notes)
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), *finished.FinishedAt)
}

func TestFinish_Validation(t *testing.T) {
	f := newFixture()
	p := f.start(t, lifecycle.StartInput{Name: "Hat", StartedAt: "2024-03-10"})
	var ve *apperr.ValidationError

	_, _, err := f.mgr.Finish(context.Background(), f.userID, p.ID, lifecycle.FinishInput{})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "finishedAt", ve.Field)

	_, _, err = f.mgr.Finish(context.Background(), f.userID, p.ID, lifecycle.FinishInput{FinishedAt: "2024-03-09"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "finishedAt", ve.Field)

	blank := ""
	_, _, err = f.mgr.Finish(context.Background(), f.userID, p.ID, lifecycle.FinishInput{FinishedAt: "2024-03-10", Name: &blank})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)

	// same calendar day as the start is allowed
	_, _, err = f.mgr.Finish(context.Background(), f.userID, p.ID, lifecycle.FinishInput{FinishedAt: "2024-03-10"})
	assert.NoError(t, err)
}

func TestFinish_SameDayNeverPrecedesStart(t *testing.T) {
	f := newFixture()
	p := f.start(t, lifecycle.StartInput{Name: "Cowl"})
	require.Equal(t, now, p.StartedAt)

	finished, _, err := f.mgr.Finish(context.Background(), f.userID, p.ID, lifecycle.FinishInput{FinishedAt: "2024-03-15"})

	require.NoError(t, err)
	require.NotNil(t, finished.FinishedAt)
	assert.Equal(t, now, *finished.FinishedAt)
	assert.False(t, finished.FinishedAt.Before(finished.StartedAt))
}

func TestFinish_LaterTimestampIsKept(t *testing.T) {
	f := newFixture()
	p := f.start(t, lifecycle.StartInput{Name: "Cowl"})

	finished, _, err := f.mgr.Finish(context.Background(), f.userID, p.ID, lifecycle.FinishInput{FinishedAt: "2024-03-15T18:30:00Z"})

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC), *finished.FinishedAt)
}

func TestFinish_NotFound(t *testing.T) {
	f := newFixture()

	_, _, err := f.mgr.Finish(context.Background(), f.userID, uuid.New(), lifecycle.FinishInput{FinishedAt: "2024-03-10"})

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestEdit_FinishedProjectFreezesTrackers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.start(t, lifecycle.StartInput{Name: "Hat", StartedAt: "2024-03-01"})
	_, _, err := f.mgr.Finish(ctx, f.userID, p.ID, lifecycle.FinishInput{FinishedAt: "2024-03-02"})
	require.NoError(t, err)

	trackers := []models.TrackerDraft{{Section: "Brim", CurrentRow: "5", TotalRows: "10"}}
	_, _, err = f.mgr.Edit(ctx, f.userID, p.ID, lifecycle.EditInput{RowTrackers: &trackers})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "rowTrackers", ve.Field)

	name := "Winter hat"
	edited, _, err := f.mgr.Edit(ctx, f.userID, p.ID, lifecycle.EditInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Winter hat", edited.Name)
}

func TestEdit_FieldsAndImageRemoval(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pattern := &models.Pattern{ID: uuid.New(), UserID: f.userID, Name: "Raglan", Text: "..."}
	require.NoError(t, f.store.CreatePattern(ctx, pattern))
	p := f.start(t, lifecycle.StartInput{
		Name:      "Sweater",
		PatternID: &pattern.ID,
		Images:    []models.ImageFile{img("a"), img("b")},
	})

	notes := "switched to 5mm"
	tags := []string{"wool", "wool", "cables"}
	trackers := []models.TrackerDraft{{Section: "Body", CurrentRow: "12", TotalRows: "80"}, {Section: "", TotalRows: ""}}
	edited, warnings, err := f.mgr.Edit(ctx, f.userID, p.ID, lifecycle.EditInput{
		Notes:          &notes,
		Tags:           &tags,
		Pattern:        models.OptionalUUID{Set: true},
		RowTrackers:    &trackers,
		RemoveImageIDs: []string{"a"},
		Images:         []models.ImageFile{img("c")},
	})

	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Nil(t, edited.PatternID)
	assert.Equal(t, "switched to 5mm", edited.Notes)
	assert.Equal(t, []string{"wool", "cables"}, edited.Tags)
	assert.Equal(t, models.RowTrackers{{Section: "Body", CurrentRow: 12, TotalRows: 80}}, edited.RowTrackers)
	assert.Equal(t, []string{"a"}, f.assets.destroyed)
	require.Len(t, edited.Images, 2)
	assert.Equal(t, "b", edited.Images[0].PublicID)
	assert.Equal(t, "c", edited.Images[1].PublicID)
	assert.Equal(t, 2, edited.Version)
}

func TestEdit_UnknownImageRejectedBeforeWrite(t *testing.T) {
	f := newFixture()
	p := f.start(t, lifecycle.StartInput{Name: "Hat", Images: []models.ImageFile{img("a")}})

	_, _, err := f.mgr.Edit(context.Background(), f.userID, p.ID, lifecycle.EditInput{RemoveImageIDs: []string{"zzz"}})

	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, f.assets.destroyed)
}

func TestEdit_StaleVersionConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.start(t, lifecycle.StartInput{Name: "Hat"})
	name := "Beanie"

	_, _, err := f.mgr.Edit(ctx, f.userID, p.ID, lifecycle.EditInput{Name: &name, Version: 1})
	require.NoError(t, err)

	_, _, err = f.mgr.Edit(ctx, f.userID, p.ID, lifecycle.EditInput{Name: &name, Version: 1})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// omitting the version keeps last-write-wins
	_, _, err = f.mgr.Edit(ctx, f.userID, p.ID, lifecycle.EditInput{Name: &name})
	assert.NoError(t, err)
}

func TestDelete_CascadesImagesAndBackReference(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.assets.failing["b"] = true
	p := f.start(t, lifecycle.StartInput{Name: "Hat", Images: []models.ImageFile{img("a"), img("b")}})

	warnings, err := f.mgr.Delete(ctx, f.userID, p.ID)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, f.assets.destroyed)
	require.Len(t, warnings, 1)
	assert.Equal(t, "b", warnings[0].PublicID)

	_, err = f.store.GetProject(ctx, f.userID, p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	u, err := f.store.GetUser(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, u.ProjectIDs)
}

func TestDelete_OtherUsersProject(t *testing.T) {
	f := newFixture()
	p := f.start(t, lifecycle.StartInput{Name: "Hat"})

	_, err := f.mgr.Delete(context.Background(), uuid.New(), p.ID)

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTrackerOperations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.start(t, lifecycle.StartInput{Name: "Blanket"})

	p, err := f.mgr.AddTracker(ctx, f.userID, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, p.RowTrackers, 2)

	p, err = f.mgr.UpdateTracker(ctx, f.userID, p.ID, 1, []rowtracker.Update{
		rowtracker.SetSection("Border"),
		rowtracker.SetTotalRows(12),
		rowtracker.SetCurrentRow(12),
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, models.RowTracker{Section: "Border", CurrentRow: 12, TotalRows: 12}, p.RowTrackers[1])

	_, err = f.mgr.RemoveTracker(ctx, f.userID, p.ID, 5, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	p, err = f.mgr.RemoveTracker(ctx, f.userID, p.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, models.RowTrackers{{Section: "Border", CurrentRow: 12, TotalRows: 12}}, p.RowTrackers)
}

func TestTrackerOperations_RejectedWhenFinished(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.start(t, lifecycle.StartInput{Name: "Blanket", StartedAt: "2024-03-01"})
	_, _, err := f.mgr.Finish(ctx, f.userID, p.ID, lifecycle.FinishInput{FinishedAt: "2024-03-02"})
	require.NoError(t, err)

	_, err = f.mgr.AddTracker(ctx, f.userID, p.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.mgr.UpdateTracker(ctx, f.userID, p.ID, 0, []rowtracker.Update{rowtracker.SetCurrentRow(3)}, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
