package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"edms-backend/internal/llm"
)

const apiURL = "https://api.openai.com/v1/chat/completions"

const systemPrompt = `You are a document analysis assistant for a construction company.
Analyze the following %s document in detail.
Extract the following information:
1. A short summary of the document (300 characters maximum)
2. 3-6 relevant keywords or tags
3. The main category or document kind (contract, report, specification, invoice, plan, etc.)
4. Important dates mentioned in the document
5. Significant numeric values or measurements
6. Names of people or organizations mentioned

Format your response as a JSON object with this structure:
{
  "summary": "Short summary text",
  "keywords": ["keyword1", "keyword2", "keyword3"],
  "category": "main category",
  "dates": ["YYYY-MM-DD format where possible"],
  "values": ["numeric values with units"],
  "entities": ["person/organization names"]
}`

// visionTypes are rendered documents sent as images to a vision-capable
// model instead of as extracted text.
var visionTypes = map[string]struct{}{
	"JPG": {}, "JPEG": {}, "PNG": {}, "GIF": {}, "PDF": {},
}

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o"
	}
	timeout := 120 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// chatMessage content is a string for text requests and a part list for
// vision requests.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// AnalyzeDocument submits one structured-extraction request and returns
// the raw JSON content of the first choice.
func (c *Client) AnalyzeDocument(ctx context.Context, input llm.AnalyzeInput) (json.RawMessage, error) {
	reqBody := chatRequest{
		Model:          c.model,
		Messages:       buildMessages(input),
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("openai request timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("openai response parse: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai response missing choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("openai response empty content")
	}
	return json.RawMessage(content), nil
}

func buildMessages(input llm.AnalyzeInput) []chatMessage {
	system := chatMessage{
		Role:    "system",
		Content: fmt.Sprintf(systemPrompt, strings.ToUpper(input.FileType)),
	}

	if isVisionType(input.FileType) && input.Base64 != "" {
		return []chatMessage{
			system,
			{
				Role: "user",
				Content: []contentPart{
					{
						Type: "text",
						Text: fmt.Sprintf("Analyze this document and extract the requested information: %s", input.FileName),
					},
					{
						Type: "image_url",
						ImageURL: &imageURL{
							URL: fmt.Sprintf("data:image/%s;base64,%s", strings.ToLower(input.FileType), input.Base64),
						},
					},
				},
			},
		}
	}

	userText := input.Text
	if userText == "" {
		userText = fmt.Sprintf("[This is a %s document that needs analysis: %s]", strings.ToUpper(input.FileType), input.FileName)
	}
	return []chatMessage{
		system,
		{Role: "user", Content: userText},
	}
}

func isVisionType(fileType string) bool {
	_, ok := visionTypes[strings.ToUpper(fileType)]
	return ok
}

var _ llm.Client = (*Client)(nil)
