// Package gateway routes prompts to LLM providers. It owns the failover
// cascade: cache first, then an ordered provider sequence, then a safe
// degraded answer. Dispatch always hands the caller usable text.
package gateway

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sentiq/screener/internal/cache"
	"github.com/sentiq/screener/internal/llm"
	"github.com/sentiq/screener/internal/logger"
)

// Prompt categories understood by the simulation path and used for cache
// key derivation.
const (
	CategoryGeneral    = "general"
	CategorySummarize  = "summarize"
	CategoryEvaluation = "recruiter_eval"
	CategoryName       = "recruiter_name"
	CategoryEmail      = "recruiter_email"
)

// OverloadMessage is returned when every provider in the sequence failed.
// It is stored and displayed instead of an error.
const OverloadMessage = "SYSTEM OVERLOAD: All language model providers are currently unavailable. " +
	"Please try again later or enable simulation mode."

// UnavailableMessage is the last-resort reply of DispatchSafe when every
// retry errored unexpectedly.
const UnavailableMessage = "SYSTEM: Temporary AI unavailability. Please retry later."

// Request describes one dispatch.
type Request struct {
	Prompt   string
	Category string
	// Model overrides the preferred provider's default model.
	Model string
	// Prefer names the provider to try first ("gemini" or "groq");
	// empty means the configured primary.
	Prefer string
	// JSONOnly asks providers with a constrained mode to enforce a
	// syntactically valid JSON object reply.
	JSONOnly bool
	// Simulate forces the provider-free canned response path for this
	// request, regardless of the router-wide setting.
	Simulate bool
}

// Router orchestrates cache lookup, rate-limited provider dispatch and
// cache population across an ordered provider sequence.
type Router struct {
	providers []llm.Client
	cache     *cache.Store
	simulate  bool
	logger    *zap.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithCache attaches the persistent response cache. Without it every
// dispatch goes live.
func WithCache(c *cache.Store) Option {
	return func(r *Router) { r.cache = c }
}

// WithSimulation forces simulation mode for every request.
func WithSimulation(enabled bool) Option {
	return func(r *Router) { r.simulate = enabled }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New creates a Router over the given providers, tried in the given
// order unless a request prefers otherwise.
func New(providers []llm.Client, opts ...Option) *Router {
	r := &Router{
		providers: providers,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dispatch resolves the request to text. Provider failures are never
// escalated individually: a cache hit, the first provider success, or
// the fixed overload advisory is returned. The only error condition is a
// router with no providers configured.
func (r *Router) Dispatch(ctx context.Context, req Request) (string, error) {
	if req.Simulate || r.simulate {
		// No cache, limiter or provider is touched in simulation.
		return simulatedResponse(req.Prompt, req.Category), nil
	}

	if len(r.providers) == 0 {
		return "", errors.New("no providers configured")
	}

	sequence := r.sequenceFor(req.Prefer)

	cacheModel := req.Model
	if cacheModel == "" {
		cacheModel = sequence[0].Model()
	}
	key := cache.Key(cacheModel, req.Category, req.Prompt)

	if r.cache != nil {
		cached, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			// Cache unavailable is a miss, not a failure.
			r.logger.Debug("cache check failed", zap.Error(err))
		} else if ok {
			r.logger.Debug("cache hit",
				zap.String("key", key[:8]),
				zap.String("model", cacheModel),
			)
			return cached, nil
		}
	}

	for _, provider := range sequence {
		opts := llm.Options{JSONOnly: req.JSONOnly}
		// A model override targets the preferred provider only; the
		// fallback keeps its own default.
		if provider == sequence[0] {
			opts.Model = req.Model
		}

		text, err := provider.Invoke(ctx, req.Prompt, opts)
		if err != nil {
			r.logger.Warn("provider failed",
				zap.String("provider", provider.Name()),
				zap.String("category", req.Category),
				zap.Error(err),
			)
			continue
		}

		r.logger.Info("provider succeeded", logger.CommonFields(provider.Name(), provider.Model())...)

		if r.cache != nil {
			if err := r.cache.Put(ctx, key, text); err != nil {
				r.logger.Debug("cache write failed", zap.Error(err))
			}
		}

		return text, nil
	}

	r.logger.Error("all providers failed", zap.String("category", req.Category))
	return OverloadMessage, nil
}

// DispatchSafe repeats the whole dispatch up to retries+1 times and
// squashes any unexpected error into a generic unavailability string, so
// callers can always store and display the result.
func (r *Router) DispatchSafe(ctx context.Context, req Request, retries int) string {
	for attempt := 0; attempt <= retries; attempt++ {
		text, err := r.Dispatch(ctx, req)
		if err == nil {
			return text
		}
		r.logger.Warn("dispatch attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return UnavailableMessage
}

// sequenceFor orders the providers with the preferred one first.
func (r *Router) sequenceFor(prefer string) []llm.Client {
	if prefer == "" {
		return r.providers
	}

	ordered := make([]llm.Client, 0, len(r.providers))
	for _, p := range r.providers {
		if p.Name() == prefer {
			ordered = append(ordered, p)
		}
	}
	for _, p := range r.providers {
		if p.Name() != prefer {
			ordered = append(ordered, p)
		}
	}
	return ordered
}
