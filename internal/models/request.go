package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"knit-tracker-backend/internal/apperr"
)

// Count is a numeric field exactly as the client typed it. Forms send row
// counts as strings ("100"), API clients as numbers; both are accepted and
// interpreted later with parse-or-default semantics.
type Count string

func (c *Count) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*c = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Count(s)
	default:
		*c = Count(b)
	}
	return nil
}

// TrackerDraft is a row tracker as submitted from a create or edit form.
type TrackerDraft struct {
	Section    string `json:"section"`
	CurrentRow Count  `json:"currentRow"`
	TotalRows  Count  `json:"totalRows"`
}

// ParseDate parses a calendar date ("2024-01-15") or an RFC 3339 timestamp.
// dateOnly reports whether the input carried no time-of-day component.
func ParseDate(field, s string) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, apperr.Validation(field, "must be a valid date")
}

// OptionalUUID distinguishes an absent field from an explicit null.
type OptionalUUID struct {
	Set bool
	ID  *uuid.UUID
}

func (o *OptionalUUID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.ID = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return apperr.Validation("pattern", "must be a pattern id or null")
	}
	if s == "" {
		o.ID = nil
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return apperr.Validation("pattern", "invalid pattern id")
	}
	o.ID = &id
	return nil
}

type CreateProjectRequest struct {
	Name        string         `json:"name" binding:"required"`
	Pattern     OptionalUUID   `json:"pattern"`
	Notes       string         `json:"notes"`
	Tags        []string       `json:"tags"`
	StartedAt   *string        `json:"startedAt,omitempty"`
	RowTrackers []TrackerDraft `json:"rowTrackers"`
	Images      []ImageFile    `json:"images"`
}

// UpdateProjectRequest covers both plain edits and the finish transition;
// a present finishedAt selects the latter.
type UpdateProjectRequest struct {
	Name                 *string         `json:"name"`
	Notes                *string         `json:"notes"`
	Tags                 *[]string       `json:"tags"`
	Pattern              OptionalUUID    `json:"pattern"`
	RowTrackers          *[]TrackerDraft `json:"rowTrackers"`
	Images               []ImageFile     `json:"images"`
	RemoveImageIDs       []string        `json:"removeImageIds"`
	FinishedAt           *string         `json:"finishedAt"`
	DeleteExistingImages bool            `json:"deleteExistingImages"`
	Version              int             `json:"version"`
}

type TrackerUpdateRequest struct {
	Section    *string `json:"section"`
	CurrentRow *Count  `json:"currentRow"`
	TotalRows  *Count  `json:"totalRows"`
	Version    int     `json:"version"`
}

type CreatePatternRequest struct {
	Name   string      `json:"name" binding:"required"`
	Text   string      `json:"text" binding:"required"`
	Link   string      `json:"link"`
	Tags   []string    `json:"tags"`
	Notes  string      `json:"notes"`
	Images []ImageFile `json:"images"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// NormalizeTags trims tags, drops blanks and removes duplicates while keeping
// first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// PrepareImages validates client-uploaded image records and stamps a missing
// upload time.
func PrepareImages(images []ImageFile, now time.Time) (Images, error) {
	out := make(Images, 0, len(images))
	for _, img := range images {
		if strings.TrimSpace(img.URL) == "" {
			return nil, apperr.Validation("images", "url is required")
		}
		if strings.TrimSpace(img.PublicID) == "" {
			return nil, apperr.Validation("images", "publicId is required")
		}
		if img.Bytes != nil && *img.Bytes < 0 {
			return nil, apperr.Validation("images", "bytes must not be negative")
		}
		if img.UploadedAt.IsZero() {
			img.UploadedAt = now
		}
		out = append(out, img)
	}
	return out, nil
}
