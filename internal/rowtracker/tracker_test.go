package rowtracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"knit-tracker-backend/internal/models"
	"knit-tracker-backend/internal/rowtracker"
)

func TestParseNonNegativeIntOrZero(t *testing.T) {
	cases := map[string]int{
		"100":   100,
		" 42 ":  42,
		"0":     0,
		"":      0,
		"abc":   0,
		"-5":    0,
		"12abc": 0,
		"3.5":   0,
	}
	for in, want := range cases {
		assert.Equal(t, want, rowtracker.ParseNonNegativeIntOrZero(in), "input %q", in)
	}
}

func TestIsComplete(t *testing.T) {
	cases := []struct {
		tracker models.RowTracker
		want    bool
	}{
		{models.RowTracker{CurrentRow: 0, TotalRows: 0}, false},
		{models.RowTracker{CurrentRow: 10, TotalRows: 0}, false},
		{models.RowTracker{CurrentRow: 9, TotalRows: 10}, false},
		{models.RowTracker{CurrentRow: 10, TotalRows: 10}, true},
		{models.RowTracker{CurrentRow: 12, TotalRows: 10}, true},
	}
	for _, tc := range cases {
		want := tc.tracker.TotalRows > 0 && tc.tracker.CurrentRow >= tc.tracker.TotalRows
		assert.Equal(t, want, rowtracker.IsComplete(tc.tracker))
		assert.Equal(t, tc.want, rowtracker.IsComplete(tc.tracker))
	}
}

func TestAdd_AppendsEmptyTracker(t *testing.T) {
	in := []models.RowTracker{{Section: "Body", CurrentRow: 3, TotalRows: 10}}

	out := rowtracker.Add(in)

	require.Len(t, out, 2)
	assert.Equal(t, models.RowTracker{}, out[1])
	assert.Len(t, in, 1)
}

func TestAdd_AllowsDuplicateSections(t *testing.T) {
	out := rowtracker.Add(rowtracker.Add(nil))
	out, err := rowtracker.Apply(out, 0, rowtracker.SetSection("Sleeve"))
	require.NoError(t, err)
	out, err = rowtracker.Apply(out, 1, rowtracker.SetSection("Sleeve"))
	require.NoError(t, err)

	assert.Equal(t, "Sleeve", out[0].Section)
	assert.Equal(t, "Sleeve", out[1].Section)
}

func TestRemove(t *testing.T) {
	in := []models.RowTracker{{Section: "A"}, {Section: "B"}, {Section: "C"}}

	out, err := rowtracker.Remove(in, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.RowTracker{{Section: "A"}, {Section: "C"}}, out)
	assert.Len(t, in, 3)

	last, err := rowtracker.Remove([]models.RowTracker{{Section: "only"}}, 0)
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestRemove_IndexOutOfRange(t *testing.T) {
	in := []models.RowTracker{{Section: "A"}}

	_, err := rowtracker.Remove(in, 1)
	assert.ErrorIs(t, err, rowtracker.ErrIndexOutOfRange)

	_, err = rowtracker.Remove(in, -1)
	assert.ErrorIs(t, err, rowtracker.ErrIndexOutOfRange)
}

func TestApply_Variants(t *testing.T) {
	in := []models.RowTracker{{Section: "Body", CurrentRow: 1, TotalRows: 5}}

	out, err := rowtracker.Apply(in, 0, rowtracker.SetCurrentRow(4))
	require.NoError(t, err)
	assert.Equal(t, 4, out[0].CurrentRow)
	assert.Equal(t, 1, in[0].CurrentRow)

	out, err = rowtracker.Apply(out, 0, rowtracker.SetTotalRows(-3))
	require.NoError(t, err)
	assert.Equal(t, 0, out[0].TotalRows)

	out, err = rowtracker.Apply(out, 0, rowtracker.SetSection("Yoke"))
	require.NoError(t, err)
	assert.Equal(t, "Yoke", out[0].Section)

	_, err = rowtracker.Apply(out, 3, rowtracker.SetSection("x"))
	assert.ErrorIs(t, err, rowtracker.ErrIndexOutOfRange)
}

func TestUpdatesFrom_ParsesFreeFormInput(t *testing.T) {
	section := " Cuff "
	current := models.Count("abc")
	total := models.Count("40")

	updates := rowtracker.UpdatesFrom(models.TrackerUpdateRequest{
		Section:    &section,
		CurrentRow: &current,
		TotalRows:  &total,
	})
	out, err := rowtracker.ApplyAll([]models.RowTracker{{Section: "Body", CurrentRow: 7}}, 0, updates)

	require.NoError(t, err)
	assert.Equal(t, models.RowTracker{Section: "Cuff", CurrentRow: 0, TotalRows: 40}, out[0])
}

func TestNormalizeForSave(t *testing.T) {
	drafts := []models.TrackerDraft{
		{Section: "", TotalRows: "100"},
		{Section: "  ", TotalRows: ""},
		{Section: "Sleeve", CurrentRow: "12", TotalRows: "oops"},
		{Section: "", CurrentRow: "5", TotalRows: "0"},
	}

	out := rowtracker.NormalizeForSave(drafts)

	assert.Equal(t, []models.RowTracker{
		{Section: "Main", CurrentRow: 0, TotalRows: 100},
		{Section: "Sleeve", CurrentRow: 12, TotalRows: 0},
	}, out)
}

func TestNormalizeForSave_Idempotent(t *testing.T) {
	drafts := []models.TrackerDraft{
		{Section: "", TotalRows: "100"},
		{Section: "Body", CurrentRow: "-2", TotalRows: "x"},
		{Section: "", TotalRows: ""},
		{Section: "Hem", CurrentRow: "8", TotalRows: "8"},
	}

	once := rowtracker.NormalizeForSave(drafts)
	twice := rowtracker.NormalizeForSave(rowtracker.ToDrafts(once))

	assert.Equal(t, once, twice)
}

func TestSummarize(t *testing.T) {
	p := rowtracker.Summarize([]models.RowTracker{
		{Section: "Body", CurrentRow: 50, TotalRows: 100},
		{Section: "Sleeve", CurrentRow: 60, TotalRows: 50},
		{Section: "Notes", CurrentRow: 4, TotalRows: 0},
	})

	assert.Equal(t, rowtracker.Progress{
		Sections:          3,
		TargetedSections:  2,
		CompletedSections: 1,
		RowsDone:          100,
		RowsTotal:         150,
		Percentage:        67,
	}, p)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, rowtracker.Progress{}, rowtracker.Summarize(nil))
}
