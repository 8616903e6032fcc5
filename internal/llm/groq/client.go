// Package groq implements the failover provider against the Groq chat
// completions API. Groq is also preferred for free-text drafting tasks
// and supports a constrained JSON-object response mode used by the
// structured extraction prompts.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sentiq/screener/internal/llm"
	"github.com/sentiq/screener/internal/ratelimit"
)

const (
	defaultModel   = "llama3-70b-8192"
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultTimeout = 90 * time.Second
	maxTokens      = 1024
)

// Client calls the Groq chat completions endpoint over plain HTTP.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	bucket  *ratelimit.Bucket
	http    *http.Client
	logger  *zap.Logger
}

// New creates a Groq client. The bucket is the process-wide admission
// control shared with the primary provider.
func New(apiKey, model string, bucket *ratelimit.Bucket, logger *zap.Logger) *Client {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		baseURL: defaultBaseURL,
		bucket:  bucket,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

func (c *Client) Name() string { return "groq" }

// Model returns the default model identifier for this client.
func (c *Client) Model() string { return c.model }

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Invoke sends the prompt and returns the completion text. It fails fast
// with llm.ErrRateLimited when the bucket does not admit the call, and
// with llm.ErrMissingCredentials when no API key is configured.
func (c *Client) Invoke(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	if c.apiKey == "" {
		return "", llm.ErrMissingCredentials
	}

	if c.bucket != nil && !c.bucket.Allow() {
		return "", llm.ErrRateLimited
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = c.model
	}

	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: "You must respond with valid JSON only."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   maxTokens,
	}
	if opts.JSONOnly {
		reqBody.ResponseFormat = &respFormat{Type: "json_object"}
	} else {
		reqBody.Messages[0].Content = "You are a helpful recruiting assistant."
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal groq request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("build groq request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode groq response: %w", err)
	}

	if result.Error.Message != "" {
		return "", fmt.Errorf("groq error: %s", result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("groq api error: %d", resp.StatusCode)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("no response from groq")
	}

	text := strings.TrimSpace(result.Choices[0].Message.Content)
	c.logger.Debug("groq response",
		zap.String("model", model),
		zap.Int("response_length", len(text)),
	)

	return text, nil
}

// SetBaseURL overrides the API endpoint. Used by tests to point the
// client at a local httptest server.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = strings.TrimRight(url, "/")
}
