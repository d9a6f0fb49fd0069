// Package storage deletes image assets held by an external blob store.
// Uploads happen client-side; this service only ever destroys assets it
// no longer references.
package storage

import (
	"context"

	"go.uber.org/zap"
	"knit-tracker-backend/internal/metrics"
	"knit-tracker-backend/internal/models"
)

// Store deletes one asset by its public id. A nil error means the backend
// acknowledged the deletion.
type Store interface {
	Destroy(ctx context.Context, publicID string) error
}

// DeleteFailedMessage is the client-facing text of a failed deletion. The
// backend error itself only goes to the log.
const DeleteFailedMessage = "image could not be deleted from storage"

// Nop is used when no storage backend is configured.
type Nop struct{}

func (Nop) Destroy(context.Context, string) error { return nil }

// DestroyAll deletes every image best-effort. Failures never stop the loop;
// each one is logged and returned as a warning for the caller to surface.
func DestroyAll(ctx context.Context, store Store, images []models.ImageFile, logger *zap.Logger) []models.Warning {
	var warnings []models.Warning
	for _, img := range images {
		if img.PublicID == "" {
			continue
		}
		err := store.Destroy(ctx, img.PublicID)
		metrics.RecordAssetDeletion(err)
		if err == nil {
			continue
		}

		logger.Warn("failed to delete image asset",
			zap.String("public_id", img.PublicID),
			zap.Error(err),
		)
		warnings = append(warnings, models.Warning{
			PublicID: img.PublicID,
			Message:  DeleteFailedMessage,
		})
	}
	return warnings
}
