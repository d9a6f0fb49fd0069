// Package rowtracker manages the ordered row counters of a project.
//
// Every function returns a fresh slice; inputs are never mutated, so callers
// can keep the stored document around for comparison or rollback.
package rowtracker

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"knit-tracker-backend/internal/models"
)

// DefaultSection names a tracker submitted without a section.
const DefaultSection = "Main"

var ErrIndexOutOfRange = errors.New("tracker index out of range")

// ParseNonNegativeIntOrZero interprets free-form row input. Anything that is
// not a non-negative base-10 integer becomes 0.
func ParseNonNegativeIntOrZero(input string) int {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func IsComplete(t models.RowTracker) bool {
	return t.TotalRows > 0 && t.CurrentRow >= t.TotalRows
}

// Add appends an empty tracker. Section names need not be unique.
func Add(trackers []models.RowTracker) []models.RowTracker {
	out := clone(trackers, 1)
	return append(out, models.RowTracker{})
}

func Remove(trackers []models.RowTracker, index int) ([]models.RowTracker, error) {
	if index < 0 || index >= len(trackers) {
		return nil, ErrIndexOutOfRange
	}
	out := make([]models.RowTracker, 0, len(trackers)-1)
	out = append(out, trackers[:index]...)
	return append(out, trackers[index+1:]...), nil
}

// Apply sets one field of the tracker at index.
func Apply(trackers []models.RowTracker, index int, u Update) ([]models.RowTracker, error) {
	if index < 0 || index >= len(trackers) {
		return nil, ErrIndexOutOfRange
	}
	out := clone(trackers, 0)
	u.apply(&out[index])
	return out, nil
}

// NormalizeForSave turns submitted drafts into stored trackers: drafts with
// neither a section name nor a positive total are dropped, blank sections
// become "Main" and counts are parsed with parse-or-default.
func NormalizeForSave(drafts []models.TrackerDraft) []models.RowTracker {
	out := make([]models.RowTracker, 0, len(drafts))
	for _, d := range drafts {
		section := strings.TrimSpace(d.Section)
		total := ParseNonNegativeIntOrZero(string(d.TotalRows))
		if section == "" && total <= 0 {
			continue
		}
		if section == "" {
			section = DefaultSection
		}
		out = append(out, models.RowTracker{
			Section:    section,
			CurrentRow: ParseNonNegativeIntOrZero(string(d.CurrentRow)),
			TotalRows:  total,
		})
	}
	return out
}

// ToDrafts renders stored trackers back into form input.
func ToDrafts(trackers []models.RowTracker) []models.TrackerDraft {
	out := make([]models.TrackerDraft, len(trackers))
	for i, t := range trackers {
		out[i] = models.TrackerDraft{
			Section:    t.Section,
			CurrentRow: models.Count(strconv.Itoa(t.CurrentRow)),
			TotalRows:  models.Count(strconv.Itoa(t.TotalRows)),
		}
	}
	return out
}

// Progress aggregates completion over a project's trackers. Only trackers
// with a target (totalRows > 0) contribute rows.
type Progress struct {
	Sections          int
	TargetedSections  int
	CompletedSections int
	RowsDone          int
	RowsTotal         int
	Percentage        int
}

func Summarize(trackers []models.RowTracker) Progress {
	p := Progress{Sections: len(trackers)}
	for _, t := range trackers {
		if t.TotalRows <= 0 {
			continue
		}
		p.TargetedSections++
		p.RowsTotal += t.TotalRows
		p.RowsDone += min(t.CurrentRow, t.TotalRows)
		if IsComplete(t) {
			p.CompletedSections++
		}
	}
	if p.RowsTotal > 0 {
		p.Percentage = int(math.Round(float64(p.RowsDone) * 100 / float64(p.RowsTotal)))
	}
	return p
}

func clone(trackers []models.RowTracker, extra int) []models.RowTracker {
	out := make([]models.RowTracker, len(trackers), len(trackers)+extra)
	copy(out, trackers)
	return out
}
