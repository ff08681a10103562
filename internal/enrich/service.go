// Package enrich runs document analysis in the background and writes the
// result back onto the owning document record.
package enrich

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"edms-backend/internal/extract"
	"edms-backend/internal/llm"
	"edms-backend/internal/shared/telemetry"
	"edms-backend/internal/store"
)

// maxContextChars caps how much extracted text is sent to the model.
const maxContextChars = 10000

var eligibleTypes = map[string]bool{
	"PDF":  true,
	"DOC":  true,
	"DOCX": true,
	"TXT":  true,
}

var base64Types = map[string]bool{
	"JPG":  true,
	"JPEG": true,
	"PNG":  true,
	"GIF":  true,
	"PDF":  true,
}

// Eligible reports whether documents of the given uppercase type get
// analyzed at all.
func Eligible(fileType string) bool {
	return eligibleTypes[strings.ToUpper(fileType)]
}

// Service coordinates extraction, inference and reconciliation.
type Service struct {
	Store store.Store
	LLM   llm.Client
}

func NewService(st store.Store, client llm.Client) *Service {
	return &Service{Store: st, LLM: client}
}

// Submit kicks off analysis for a freshly uploaded document. The file bytes
// are read before returning because the caller deletes the temp file right
// after; everything else happens in a detached goroutine. Ineligible types
// are skipped silently.
func (s *Service) Submit(docID int, filePath, fileType, fileName string) {
	if !Eligible(fileType) {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		telemetry.Error("enrich.read_failed", map[string]any{
			"documentId": docID,
			"path":       filePath,
			"error":      err.Error(),
		})
		return
	}
	go s.analyze(context.Background(), docID, data, strings.ToUpper(fileType), fileName)
}

func (s *Service) analyze(ctx context.Context, docID int, data []byte, fileType, fileName string) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("enrich.panic", map[string]any{
				"documentId": docID,
				"panic":      fmt.Sprintf("%v", r),
			})
		}
	}()

	text, err := extract.Text(data, fileType)
	if err != nil {
		telemetry.Info("enrich.extract_failed", map[string]any{
			"documentId": docID,
			"fileType":   fileType,
			"error":      err.Error(),
		})
		text = ""
	}
	if len(text) > maxContextChars {
		// Back up to a rune start so the cap never splits a UTF-8 sequence.
		cut := maxContextChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	input := llm.AnalyzeInput{
		FileName: fileName,
		FileType: fileType,
		Text:     text,
	}
	if base64Types[fileType] {
		input.Base64 = base64.StdEncoding.EncodeToString(data)
	}

	raw, err := s.LLM.AnalyzeDocument(ctx, input)
	if err != nil {
		telemetry.Error("enrich.inference_failed", map[string]any{
			"documentId": docID,
			"error":      err.Error(),
		})
		return
	}

	analysis := parseAnalysis(raw, fileName)
	analysis.FileType = fileType
	analysis.FileName = fileName
	analysis.AnalyzedAt = time.Now().UTC()

	if _, err := s.Store.UpdateDocumentAnalysis(ctx, docID, analysis); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			telemetry.Info("enrich.document_gone", map[string]any{
				"documentId": docID,
			})
			return
		}
		telemetry.Error("enrich.persist_failed", map[string]any{
			"documentId": docID,
			"error":      err.Error(),
		})
		return
	}
	telemetry.Info("enrich.complete", map[string]any{
		"documentId": docID,
		"category":   analysis.Category,
	})
}

// parseAnalysis decodes the model output, substituting a fallback record
// when the payload is not usable JSON.
func parseAnalysis(raw json.RawMessage, fileName string) store.Analysis {
	var analysis store.Analysis
	if err := json.Unmarshal(raw, &analysis); err != nil || analysis.Summary == "" && analysis.Category == "" {
		return store.Analysis{
			Summary:  "Automatic analysis could not produce a structured result for " + fileName + ".",
			Keywords: []string{},
			Category: "Uncategorized",
		}
	}
	if analysis.Keywords == nil {
		analysis.Keywords = []string{}
	}
	if analysis.Category == "" {
		analysis.Category = "Uncategorized"
	}
	return analysis
}
