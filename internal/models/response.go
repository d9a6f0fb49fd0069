package models

import "time"

type ProjectResponse struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	Pattern      *string           `json:"pattern"`
	Name         string            `json:"name"`
	Notes        string            `json:"notes"`
	Tags         []string          `json:"tags"`
	Images       []ImageFile       `json:"images"`
	RowTrackers  []TrackerResponse `json:"rowTrackers"`
	Progress     ProgressResponse  `json:"progress"`
	Status       ProjectState      `json:"status"`
	RowsEditable bool              `json:"rowsEditable"`
	StartedAt    time.Time         `json:"startedAt"`
	FinishedAt   *time.Time        `json:"finishedAt"`
	Version      int               `json:"version"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	Warnings     []Warning         `json:"warnings,omitempty"`
}

type TrackerResponse struct {
	Section    string `json:"section"`
	CurrentRow int    `json:"currentRow"`
	TotalRows  int    `json:"totalRows"`
	Complete   bool   `json:"complete"`
}

type ProgressResponse struct {
	Sections          int `json:"sections"`
	TargetedSections  int `json:"targetedSections"`
	CompletedSections int `json:"completedSections"`
	RowsDone          int `json:"rowsDone"`
	RowsTotal         int `json:"rowsTotal"`
	Percentage        int `json:"percentage"`
}

type ProjectListResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type PatternResponse struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Name      string      `json:"name"`
	Text      string      `json:"text"`
	Link      string      `json:"link,omitempty"`
	Tags      []string    `json:"tags"`
	Notes     string      `json:"notes"`
	Images    []ImageFile `json:"images"`
	CreatedAt time.Time   `json:"createdAt"`
}

type PatternListResponse struct {
	Patterns []PatternResponse `json:"patterns"`
}

// UserProfileResponse summarizes what a user has stored.
type UserProfileResponse struct {
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	UploadBytes  int64  `json:"uploadBytes"`
	PatternCount int    `json:"patternCount"`
	ProjectCount int    `json:"projectCount"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// AnalyticsSummary is the analytics view over one user's collection.
type AnalyticsSummary struct {
	UserID           string          `json:"userId"`
	CompletionRate   CompletionRate  `json:"completionRate"`
	ActivityByMonth  []MonthActivity `json:"activityByMonth"`
	MostUsedPatterns []PatternUsage  `json:"mostUsedPatterns"`
	AverageDuration  DurationStats   `json:"averageDuration"`
	RecentActivity   RecentActivity  `json:"recentActivity"`
	CurrentProjects  CurrentProjects `json:"currentProjects"`
}

type CompletionRate struct {
	Percentage int `json:"percentage"`
	Completed  int `json:"completed"`
	Total      int `json:"total"`
}

type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type MonthActivity struct {
	ID       YearMonth `json:"_id"`
	Started  int       `json:"started"`
	Finished int       `json:"finished"`
}

type PatternUsage struct {
	PatternID    string `json:"patternId"`
	PatternName  string `json:"patternName"`
	ProjectCount int    `json:"projectCount"`
}

// DurationStats are in fractional days. Count == 0 means no data, not a
// zero-day average.
type DurationStats struct {
	AvgDuration float64 `json:"avgDuration"`
	MinDuration float64 `json:"minDuration"`
	MaxDuration float64 `json:"maxDuration"`
	Count       int     `json:"count"`
	Label       string  `json:"label,omitempty"`
}

type RecentActivity struct {
	ProjectsStarted   int `json:"projectsStarted"`
	ProjectsCompleted int `json:"projectsCompleted"`
	PatternsCreated   int `json:"patternsCreated"`
}

type CurrentProjects struct {
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Total      int `json:"total"`
}
