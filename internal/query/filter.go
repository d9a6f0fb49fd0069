package query

import (
	"net/url"
	"strings"
	"time"

	"knit-tracker-backend/internal/models"
)

// ProjectFilter is a conjunction of optional predicates. Zero-valued fields
// impose no constraint. Date bounds are inclusive.
type ProjectFilter struct {
	Q              string
	StartedAfter   *time.Time
	StartedBefore  *time.Time
	FinishedAfter  *time.Time
	FinishedBefore *time.Time
}

// ParseProjectFilter reads q, startedAfter, startedBefore, finishedAfter and
// finishedBefore. A calendar date as an upper bound covers that whole day.
func ParseProjectFilter(values url.Values) (ProjectFilter, error) {
	f := ProjectFilter{Q: strings.TrimSpace(values.Get("q"))}

	bounds := []struct {
		param string
		upper bool
		dst   **time.Time
	}{
		{"startedAfter", false, &f.StartedAfter},
		{"startedBefore", true, &f.StartedBefore},
		{"finishedAfter", false, &f.FinishedAfter},
		{"finishedBefore", true, &f.FinishedBefore},
	}
	for _, b := range bounds {
		raw := strings.TrimSpace(values.Get(b.param))
		if raw == "" {
			continue
		}
		t, dateOnly, err := models.ParseDate(b.param, raw)
		if err != nil {
			return ProjectFilter{}, err
		}
		if dateOnly && b.upper {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		*b.dst = &t
	}
	return f, nil
}

func (f ProjectFilter) Match(p *models.Project) bool {
	if f.Q != "" && !containsFold(p.Name, f.Q) {
		return false
	}
	if f.StartedAfter != nil && p.StartedAt.Before(*f.StartedAfter) {
		return false
	}
	if f.StartedBefore != nil && p.StartedAt.After(*f.StartedBefore) {
		return false
	}
	if f.FinishedAfter != nil || f.FinishedBefore != nil {
		if p.FinishedAt == nil {
			return false
		}
		if f.FinishedAfter != nil && p.FinishedAt.Before(*f.FinishedAfter) {
			return false
		}
		if f.FinishedBefore != nil && p.FinishedAt.After(*f.FinishedBefore) {
			return false
		}
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
