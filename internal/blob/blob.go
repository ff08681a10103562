// Package blob routes uploaded file bytes to one of two object-storage
// backends based on size, masking adapter failures behind a placeholder
// locator so uploads still succeed.
package blob

import (
	"context"
	"fmt"

	"edms-backend/internal/shared/telemetry"
)

// SizeThreshold is the routing boundary: payloads at or above it go to
// Google Drive, smaller ones to Supabase.
const SizeThreshold = 10 * 1024 * 1024

// Uploader stores a local file in a remote backend and returns a publicly
// dereferenceable URL.
type Uploader interface {
	Upload(ctx context.Context, localPath, fileName, mimeType string) (string, error)
	Backend() string
}

// Result is the outcome of routing one upload. Degraded marks a masked
// adapter failure: URL is then a synthetic placeholder and the bytes were
// not durably stored.
type Result struct {
	URL      string
	Backend  string
	Degraded bool
}

// Router selects a backend per upload.
type Router struct {
	Supabase Uploader
	Drive    Uploader
}

// Store routes the file at localPath by size and returns the locator. It
// never fails: adapter errors are logged and replaced with a placeholder.
func (r *Router) Store(ctx context.Context, localPath, fileName, mimeType string, sizeBytes int64) Result {
	uploader := r.Supabase
	if sizeBytes >= SizeThreshold {
		uploader = r.Drive
	}

	url, err := uploader.Upload(ctx, localPath, fileName, mimeType)
	if err != nil {
		telemetry.Error("blob.upload_failed", map[string]any{
			"backend":   uploader.Backend(),
			"file_name": fileName,
			"size":      sizeBytes,
			"error":     err.Error(),
		})
		return Result{
			URL:      Placeholder(uploader.Backend(), fileName),
			Backend:  uploader.Backend(),
			Degraded: true,
		}
	}

	return Result{URL: url, Backend: uploader.Backend()}
}

// Placeholder builds the synthetic locator recorded when physical storage
// failed.
func Placeholder(backend, fileName string) string {
	return fmt.Sprintf("%s://documents/%s", backend, fileName)
}

// Unconfigured is an Uploader whose credentials were absent at startup.
// Every upload fails, which the Router degrades to a placeholder.
type Unconfigured struct {
	Tag string
}

func (u Unconfigured) Upload(ctx context.Context, localPath, fileName, mimeType string) (string, error) {
	return "", fmt.Errorf("%s credentials not configured", u.Tag)
}

func (u Unconfigured) Backend() string {
	return u.Tag
}

var _ Uploader = Unconfigured{}
