package storage

import (
	"context"
	"strings"

	storage "github.com/supabase-community/storage-go"
	"knit-tracker-backend/internal/apperr"
)

type supabaseAPI interface {
	RemoveFile(bucketID string, paths []string) ([]storage.FileUploadResponse, error)
}

// SupabaseStore removes objects from a Supabase storage bucket. The public id
// is the object path inside the bucket.
type SupabaseStore struct {
	client supabaseAPI
	bucket string
}

func NewSupabaseStore(supabaseURL, serviceKey, bucket string) *SupabaseStore {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	client := storage.NewClient(baseURL+"/storage/v1", serviceKey, nil)

	return &SupabaseStore{
		client: client,
		bucket: bucket,
	}
}

func (s *SupabaseStore) Destroy(_ context.Context, publicID string) error {
	if _, err := s.client.RemoveFile(s.bucket, []string{publicID}); err != nil {
		return &apperr.StorageError{Op: "remove", PublicID: publicID, Err: err}
	}
	return nil
}
