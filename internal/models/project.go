package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ProjectState string

const (
	StateInProgress ProjectState = "in_progress"
	StateFinished   ProjectState = "finished"
)

// Project is a user's execution of (optionally) a pattern. Row trackers and
// images are embedded and always read and written with the project.
type Project struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	PatternID   *uuid.UUID
	Name        string
	Notes       string
	Tags        []string
	Images      Images
	RowTrackers RowTrackers
	StartedAt   time.Time
	FinishedAt  *time.Time
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Project) State() ProjectState {
	if p.FinishedAt == nil {
		return StateInProgress
	}
	return StateFinished
}

func (p *Project) IsFinished() bool {
	return p.FinishedAt != nil
}

// RowsEditable reports whether currentRow/totalRows may still change.
// Trackers of a finished project are display-only.
func (p *Project) RowsEditable() bool {
	return !p.IsFinished()
}

// Clone returns a deep copy so callers can mutate freely before writing back.
func (p *Project) Clone() *Project {
	cp := *p
	if p.PatternID != nil {
		id := *p.PatternID
		cp.PatternID = &id
	}
	if p.FinishedAt != nil {
		t := *p.FinishedAt
		cp.FinishedAt = &t
	}
	cp.Tags = append([]string(nil), p.Tags...)
	cp.Images = append(Images(nil), p.Images...)
	cp.RowTrackers = append(RowTrackers(nil), p.RowTrackers...)
	return &cp
}

// RowTracker is a named row counter for one section of a project.
type RowTracker struct {
	Section    string `json:"section"`
	CurrentRow int    `json:"currentRow"`
	TotalRows  int    `json:"totalRows"`
}

// RowTrackers is stored as a JSONB array.
type RowTrackers []RowTracker

func (t RowTrackers) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t)
}

func (t *RowTrackers) Scan(src any) error {
	return scanJSON(src, t)
}

// ImageFile is an uploaded asset reference embedded in a pattern or project.
type ImageFile struct {
	URL        string    `json:"url"`
	PublicID   string    `json:"publicId"`
	UploadedAt time.Time `json:"uploadedAt"`
	Bytes      *int64    `json:"bytes,omitempty"`
}

// Images is stored as a JSONB array.
type Images []ImageFile

func (im Images) Value() (driver.Value, error) {
	if im == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(im)
}

func (im *Images) Scan(src any) error {
	return scanJSON(src, im)
}

// TotalBytes sums the known sizes.
func (im Images) TotalBytes() int64 {
	var n int64
	for _, img := range im {
		if img.Bytes != nil {
			n += *img.Bytes
		}
	}
	return n
}

func scanJSON(src any, dst any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
