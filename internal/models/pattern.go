package models

import (
	"time"

	"github.com/google/uuid"
)

// Pattern is a reusable set of instructions owned by one user.
type Pattern struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Text      string
	Link      string
	Tags      []string
	Notes     string
	Images    Images
	CreatedAt time.Time
}

type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	UploadBytes  int64
	PatternIDs   []uuid.UUID
	ProjectIDs   []uuid.UUID
}

// Warning is a non-fatal failure reported alongside a successful operation,
// e.g. an image asset that could not be removed from storage.
type Warning struct {
	PublicID string `json:"publicId,omitempty"`
	Message  string `json:"message"`
}
