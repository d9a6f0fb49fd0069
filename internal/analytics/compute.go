package analytics

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"knit-tracker-backend/internal/models"
)

const (
	topPatterns    = 10
	msPerDay       = 86400000.0
	recentWindow   = 30 * 24 * time.Hour
	activityMonths = 12
)

// Compute derives the analytics summary for one user's collection. It is
// pure: projects and patterns must already be scoped to userID.
func Compute(userID uuid.UUID, projects []models.Project, patterns []models.Pattern, now time.Time) models.AnalyticsSummary {
	now = now.UTC()
	return models.AnalyticsSummary{
		UserID:           userID.String(),
		CompletionRate:   completionRate(projects),
		ActivityByMonth:  activityByMonth(projects, now),
		MostUsedPatterns: mostUsedPatterns(projects, patterns),
		AverageDuration:  averageDuration(projects),
		RecentActivity:   recentActivity(projects, patterns, now),
		CurrentProjects:  currentProjects(projects),
	}
}

func countFinished(projects []models.Project) int {
	n := 0
	for i := range projects {
		if projects[i].IsFinished() {
			n++
		}
	}
	return n
}

func completionRate(projects []models.Project) models.CompletionRate {
	total := len(projects)
	completed := countFinished(projects)
	rate := models.CompletionRate{Completed: completed, Total: total}
	if total > 0 {
		rate.Percentage = int(math.Round(float64(completed) * 100 / float64(total)))
	}
	return rate
}

func currentProjects(projects []models.Project) models.CurrentProjects {
	completed := countFinished(projects)
	return models.CurrentProjects{
		InProgress: len(projects) - completed,
		Completed:  completed,
		Total:      len(projects),
	}
}

// activityByMonth buckets projects started in the trailing twelve months by
// start month. "finished" counts projects of that bucket that are finished,
// whenever they finished. Empty months are omitted.
func activityByMonth(projects []models.Project, now time.Time) []models.MonthActivity {
	cutoff := now.AddDate(0, -activityMonths, 0)
	buckets := make(map[models.YearMonth]*models.MonthActivity)
	for i := range projects {
		p := &projects[i]
		started := p.StartedAt.UTC()
		if started.Before(cutoff) {
			continue
		}
		key := models.YearMonth{Year: started.Year(), Month: int(started.Month())}
		b, ok := buckets[key]
		if !ok {
			b = &models.MonthActivity{ID: key}
			buckets[key] = b
		}
		b.Started++
		if p.IsFinished() {
			b.Finished++
		}
	}

	out := make([]models.MonthActivity, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b models.MonthActivity) int {
		return cmp.Or(cmp.Compare(a.ID.Year, b.ID.Year), cmp.Compare(a.ID.Month, b.ID.Month))
	})
	return out
}

// mostUsedPatterns ranks referenced patterns by project count. References to
// patterns that no longer exist are dropped.
func mostUsedPatterns(projects []models.Project, patterns []models.Pattern) []models.PatternUsage {
	names := make(map[uuid.UUID]string, len(patterns))
	for _, p := range patterns {
		names[p.ID] = p.Name
	}

	counts := make(map[uuid.UUID]int)
	for i := range projects {
		if id := projects[i].PatternID; id != nil {
			counts[*id]++
		}
	}

	out := make([]models.PatternUsage, 0, len(counts))
	for id, n := range counts {
		name, ok := names[id]
		if !ok {
			continue
		}
		out = append(out, models.PatternUsage{PatternID: id.String(), PatternName: name, ProjectCount: n})
	}
	slices.SortFunc(out, func(a, b models.PatternUsage) int {
		return cmp.Or(
			cmp.Compare(b.ProjectCount, a.ProjectCount),
			cmp.Compare(a.PatternName, b.PatternName),
			cmp.Compare(a.PatternID, b.PatternID),
		)
	})
	if len(out) > topPatterns {
		out = out[:topPatterns]
	}
	return out
}

// averageDuration is in fractional days over projects with both dates set.
func averageDuration(projects []models.Project) models.DurationStats {
	var stats models.DurationStats
	var sum float64
	for i := range projects {
		p := &projects[i]
		if p.FinishedAt == nil || p.StartedAt.IsZero() {
			continue
		}
		d := float64(p.FinishedAt.Sub(p.StartedAt).Milliseconds()) / msPerDay
		if d < 0 {
			d = 0
		}
		if stats.Count == 0 || d < stats.MinDuration {
			stats.MinDuration = d
		}
		if stats.Count == 0 || d > stats.MaxDuration {
			stats.MaxDuration = d
		}
		sum += d
		stats.Count++
	}
	if stats.Count > 0 {
		stats.AvgDuration = sum / float64(stats.Count)
		stats.Label = FormatDuration(stats.AvgDuration)
	}
	return stats
}

func recentActivity(projects []models.Project, patterns []models.Pattern, now time.Time) models.RecentActivity {
	since := now.Add(-recentWindow)
	var ra models.RecentActivity
	for i := range projects {
		p := &projects[i]
		if !p.StartedAt.Before(since) {
			ra.ProjectsStarted++
		}
		if p.FinishedAt != nil && !p.FinishedAt.Before(since) {
			ra.ProjectsCompleted++
		}
	}
	for i := range patterns {
		if !patterns[i].CreatedAt.Before(since) {
			ra.PatternsCreated++
		}
	}
	return ra
}

// FormatDuration renders a fractional day count for display.
func FormatDuration(days float64) string {
	switch {
	case days < 1:
		return "< 1 day"
	case days < 7:
		return plural(int(math.Round(days)), "day")
	case days < 30:
		return plural(int(math.Round(days/7)), "week")
	default:
		return plural(int(math.Round(days/30)), "month")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
