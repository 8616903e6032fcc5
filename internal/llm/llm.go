// Package llm defines the provider client capability shared by every
// concrete LLM backend.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrRateLimited is returned when the shared token bucket does not
	// admit the call. Providers fail fast with this error instead of
	// blocking; the gateway treats it like any other provider failure.
	ErrRateLimited = errors.New("rate limit reached")

	// ErrMissingCredentials is returned when a provider has no usable
	// API key configured.
	ErrMissingCredentials = errors.New("api key is not configured")
)

// Options tunes a single invocation.
type Options struct {
	// Model overrides the provider's default model when non-empty.
	Model string
	// JSONOnly asks the provider to enforce a syntactically valid JSON
	// object response when it supports a constrained mode.
	JSONOnly bool
}

// Client is a single LLM provider. Invoke sends the prompt and returns
// the response text, or an error the gateway converts into failover.
type Client interface {
	Name() string
	Model() string
	Invoke(ctx context.Context, prompt string, opts Options) (string, error)
}
