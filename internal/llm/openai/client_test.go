package openai

import (
	"strings"
	"testing"

	"edms-backend/internal/llm"
)

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("", "gpt-4o"); err == nil {
		t.Fatal("expected error for empty api key")
	}
	client, err := NewClient("sk-test", "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.model != "gpt-4o" {
		t.Fatalf("expected default model gpt-4o, got %s", client.model)
	}
}

func TestBuildMessagesTextDocument(t *testing.T) {
	msgs := buildMessages(llm.AnalyzeInput{
		FileName: "contract.txt",
		FileType: "TXT",
		Text:     "The contractor agrees to complete foundations by March.",
	})

	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	system, ok := msgs[0].Content.(string)
	if !ok {
		t.Fatalf("expected string system content, got %T", msgs[0].Content)
	}
	if !strings.Contains(system, "TXT") {
		t.Fatal("expected system prompt to name the file type")
	}
	user, ok := msgs[1].Content.(string)
	if !ok {
		t.Fatalf("expected string user content, got %T", msgs[1].Content)
	}
	if !strings.Contains(user, "foundations") {
		t.Fatalf("expected extracted text in user message, got %q", user)
	}
}

func TestBuildMessagesEmptyTextGetsPlaceholder(t *testing.T) {
	msgs := buildMessages(llm.AnalyzeInput{FileName: "scan.docx", FileType: "DOCX"})

	user, ok := msgs[1].Content.(string)
	if !ok {
		t.Fatalf("expected string user content, got %T", msgs[1].Content)
	}
	if !strings.Contains(user, "scan.docx") {
		t.Fatalf("expected placeholder to name the file, got %q", user)
	}
}

func TestBuildMessagesVisionDocument(t *testing.T) {
	msgs := buildMessages(llm.AnalyzeInput{
		FileName: "blueprint.pdf",
		FileType: "PDF",
		Base64:   "aGVsbG8=",
	})

	parts, ok := msgs[1].Content.([]contentPart)
	if !ok {
		t.Fatalf("expected content parts for vision request, got %T", msgs[1].Content)
	}
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[1].ImageURL == nil {
		t.Fatal("expected image_url part")
	}
	if !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/pdf;base64,") {
		t.Fatalf("unexpected data url %s", parts[1].ImageURL.URL)
	}
}

func TestIsVisionType(t *testing.T) {
	for _, ft := range []string{"jpg", "JPEG", "png", "GIF", "pdf"} {
		if !isVisionType(ft) {
			t.Fatalf("expected %s to be a vision type", ft)
		}
	}
	for _, ft := range []string{"TXT", "DOCX", ""} {
		if isVisionType(ft) {
			t.Fatalf("expected %s not to be a vision type", ft)
		}
	}
}
