package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Client abstracts inference providers for document analysis.
type Client interface {
	AnalyzeDocument(ctx context.Context, input AnalyzeInput) (json.RawMessage, error)
}

// AnalyzeInput captures the inputs prepared for one analysis request.
type AnalyzeInput struct {
	FileName string
	// FileType is the uppercase file extension (PDF, DOCX, ...).
	FileType string
	// Text is extracted document text, capped by the caller; may be empty.
	Text string
	// Base64 is the raw content for vision-capable inference; may be empty.
	Base64 string
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm client not configured")

// PlaceholderClient is installed when no inference credential is present.
// Enrichment attempts fail and documents simply stay unanalyzed.
type PlaceholderClient struct{}

func (PlaceholderClient) AnalyzeDocument(ctx context.Context, input AnalyzeInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	return nil, ErrNotConfigured
}
