package handlers

import (
	"knit-tracker-backend/internal/models"
	"knit-tracker-backend/internal/rowtracker"
)

func toProjectResponse(p *models.Project, warnings []models.Warning) models.ProjectResponse {
	resp := models.ProjectResponse{
		ID:           p.ID.String(),
		UserID:       p.UserID.String(),
		Name:         p.Name,
		Notes:        p.Notes,
		Tags:         nonNil(p.Tags),
		Images:       nonNil([]models.ImageFile(p.Images)),
		RowTrackers:  make([]models.TrackerResponse, 0, len(p.RowTrackers)),
		Status:       p.State(),
		RowsEditable: p.RowsEditable(),
		StartedAt:    p.StartedAt,
		FinishedAt:   p.FinishedAt,
		Version:      p.Version,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		Warnings:     warnings,
	}
	if p.PatternID != nil {
		id := p.PatternID.String()
		resp.Pattern = &id
	}
	for _, t := range p.RowTrackers {
		resp.RowTrackers = append(resp.RowTrackers, models.TrackerResponse{
			Section:    t.Section,
			CurrentRow: t.CurrentRow,
			TotalRows:  t.TotalRows,
			Complete:   rowtracker.IsComplete(t),
		})
	}

	progress := rowtracker.Summarize(p.RowTrackers)
	resp.Progress = models.ProgressResponse{
		Sections:          progress.Sections,
		TargetedSections:  progress.TargetedSections,
		CompletedSections: progress.CompletedSections,
		RowsDone:          progress.RowsDone,
		RowsTotal:         progress.RowsTotal,
		Percentage:        progress.Percentage,
	}
	return resp
}

func toProjectList(projects []models.Project) models.ProjectListResponse {
	out := make([]models.ProjectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, toProjectResponse(&projects[i], nil))
	}
	return models.ProjectListResponse{Projects: out}
}

func toPatternResponse(p *models.Pattern) models.PatternResponse {
	return models.PatternResponse{
		ID:        p.ID.String(),
		UserID:    p.UserID.String(),
		Name:      p.Name,
		Text:      p.Text,
		Link:      p.Link,
		Tags:      nonNil(p.Tags),
		Notes:     p.Notes,
		Images:    nonNil([]models.ImageFile(p.Images)),
		CreatedAt: p.CreatedAt,
	}
}

func toPatternList(patterns []models.Pattern) models.PatternListResponse {
	out := make([]models.PatternResponse, 0, len(patterns))
	for i := range patterns {
		out = append(out, toPatternResponse(&patterns[i]))
	}
	return models.PatternListResponse{Patterns: out}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
