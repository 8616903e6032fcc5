// Package gemini implements the primary provider on top of the Google
// GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/sentiq/screener/internal/llm"
	"github.com/sentiq/screener/internal/ratelimit"
)

const defaultModel = "gemini-2.5-flash"

// Client wraps the Google GenAI client behind the llm.Client capability.
type Client struct {
	client *genai.Client
	model  string
	bucket *ratelimit.Bucket
	logger *zap.Logger
}

// New creates a Gemini client configured for the Gemini API backend. The
// bucket is shared with every other provider and consulted before each
// network call.
func New(ctx context.Context, apiKey, model string, bucket *ratelimit.Bucket, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, llm.ErrMissingCredentials
	}

	cfg := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{client: client, model: model, bucket: bucket, logger: logger}, nil
}

func (c *Client) Name() string { return "gemini" }

// Model returns the default model identifier for this client.
func (c *Client) Model() string { return c.model }

// Invoke sends the prompt to Gemini and returns the response text. The
// call fails fast with llm.ErrRateLimited when the bucket does not admit
// it.
func (c *Client) Invoke(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("gemini client is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	if c.bucket != nil && !c.bucket.Allow() {
		return "", llm.ErrRateLimited
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = c.model
	}

	var genCfg *genai.GenerateContentConfig
	if opts.JSONOnly {
		genCfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := extractText(resp)
	c.logger.Debug("gemini response",
		zap.String("model", model),
		zap.Int("response_length", len(text)),
	)

	return text, nil
}

// extractText pulls the textual payload out of a response. It never
// fails: when no candidate carries text, the string form of the whole
// response is returned as a last resort.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	if out := strings.TrimSpace(builder.String()); out != "" {
		return out
	}

	return fmt.Sprintf("%v", resp)
}
