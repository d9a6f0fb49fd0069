package rowtracker

import (
	"strings"

	"knit-tracker-backend/internal/models"
)

// Update is one explicit change to a single tracker field.
type Update interface {
	apply(t *models.RowTracker)
}

type SetSection string

type SetCurrentRow int

type SetTotalRows int

func (s SetSection) apply(t *models.RowTracker) { t.Section = string(s) }

func (n SetCurrentRow) apply(t *models.RowTracker) { t.CurrentRow = max(int(n), 0) }

func (n SetTotalRows) apply(t *models.RowTracker) { t.TotalRows = max(int(n), 0) }

// UpdatesFrom converts a partial tracker form into updates in field order
// section, currentRow, totalRows.
func UpdatesFrom(req models.TrackerUpdateRequest) []Update {
	var out []Update
	if req.Section != nil {
		out = append(out, SetSection(strings.TrimSpace(*req.Section)))
	}
	if req.CurrentRow != nil {
		out = append(out, SetCurrentRow(ParseNonNegativeIntOrZero(string(*req.CurrentRow))))
	}
	if req.TotalRows != nil {
		out = append(out, SetTotalRows(ParseNonNegativeIntOrZero(string(*req.TotalRows))))
	}
	return out
}

// ApplyAll applies updates in order to the tracker at index.
func ApplyAll(trackers []models.RowTracker, index int, updates []Update) ([]models.RowTracker, error) {
	if index < 0 || index >= len(trackers) {
		return nil, ErrIndexOutOfRange
	}
	out := trackers
	for _, u := range updates {
		var err error
		if out, err = Apply(out, index, u); err != nil {
			return nil, err
		}
	}
	if len(updates) == 0 {
		out = clone(trackers, 0)
	}
	return out, nil
}
