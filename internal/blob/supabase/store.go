// Package supabase stores uploaded files in a Supabase storage bucket.
package supabase

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	storage_go "github.com/supabase-community/storage-go"
	supa "github.com/supabase-community/supabase-go"

	"edms-backend/internal/blob"
	"edms-backend/internal/store"
)

const bucketName = "documents"

// Store uploads files to Supabase storage and returns their public URL.
type Store struct {
	client *supa.Client
}

// New constructs the adapter. Missing credentials are a configuration
// error surfaced at startup, not per request.
func New(supabaseURL, supabaseKey string) (*Store, error) {
	if strings.TrimSpace(supabaseURL) == "" || strings.TrimSpace(supabaseKey) == "" {
		return nil, fmt.Errorf("supabase credentials not configured")
	}
	client, err := supa.NewClient(supabaseURL, supabaseKey, nil)
	if err != nil {
		return nil, fmt.Errorf("init supabase client: %w", err)
	}
	return &Store{client: client}, nil
}

// Upload writes the local file into the documents bucket under a
// timestamp-prefixed name and returns the public URL.
func (s *Store) Upload(ctx context.Context, localPath, fileName, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	s.ensureBucket()

	uniqueName := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), fileName)
	cacheControl := "3600"
	_, err = s.client.Storage.UploadFile(bucketName, uniqueName, f, storage_go.FileOptions{
		ContentType:  &mimeType,
		CacheControl: &cacheControl,
	})
	if err != nil {
		return "", fmt.Errorf("supabase upload %s: %w", uniqueName, err)
	}

	return s.client.Storage.GetPublicUrl(bucketName, uniqueName).SignedURL, nil
}

func (s *Store) Backend() string {
	return store.StorageSupabase
}

// ensureBucket creates the documents bucket if it does not exist yet.
// Creation races and already-exists responses are not fatal; the upload
// itself reports the real error if the bucket is truly absent.
func (s *Store) ensureBucket() {
	if _, err := s.client.Storage.GetBucket(bucketName); err == nil {
		return
	}
	_, _ = s.client.Storage.CreateBucket(bucketName, storage_go.BucketOptions{Public: false})
}

var _ blob.Uploader = (*Store)(nil)
