package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sentiq/screener/internal/cache"
	"github.com/sentiq/screener/internal/gateway"
	"github.com/sentiq/screener/internal/llm"
	"github.com/sentiq/screener/internal/llm/gemini"
	"github.com/sentiq/screener/internal/llm/groq"
	"github.com/sentiq/screener/internal/ratelimit"
	"github.com/sentiq/screener/internal/screening"
	"github.com/sentiq/screener/internal/secrets"
	"github.com/sentiq/screener/internal/store"
)

// stack holds the wired application: providers behind the gateway, the
// candidate store and the screening service on top.
type stack struct {
	Store   *store.Store
	Cache   *cache.Store
	Router  *gateway.Router
	Agent   *screening.Agent
	Service *screening.Service
}

func (s *stack) Close() {
	if s.Cache != nil {
		s.Cache.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// buildStack wires every component from the config. In simulation mode
// providers are optional: the gateway never reaches them.
func buildStack(ctx context.Context, config *Config, logger *zap.Logger) (*stack, error) {
	st, err := store.Open(config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening candidate store: %w", err)
	}

	llmCache, err := cache.Open(config.CacheFile)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("opening response cache: %w", err)
	}

	providers, err := buildProviders(ctx, config, logger)
	if err != nil {
		llmCache.Close()
		st.Close()
		return nil, err
	}
	if len(providers) == 0 && !config.Simulate {
		llmCache.Close()
		st.Close()
		return nil, fmt.Errorf("no provider credentials found (set GEMINI_API_KEY or GROQ_API_KEY, or run with --simulate)")
	}

	router := gateway.New(providers,
		gateway.WithCache(llmCache),
		gateway.WithSimulation(config.Simulate),
		gateway.WithLogger(logger),
	)

	agent := screening.NewAgent(router, logger)

	return &stack{
		Store:   st,
		Cache:   llmCache,
		Router:  router,
		Agent:   agent,
		Service: screening.NewService(st, agent, logger),
	}, nil
}

// buildProviders returns the failover sequence: gemini first, groq
// second. A provider with no resolvable key is skipped with a warning,
// not treated as fatal.
func buildProviders(ctx context.Context, config *Config, logger *zap.Logger) ([]llm.Client, error) {
	var providers []llm.Client

	// One bucket for the whole process: the rpm budget covers all
	// outbound provider calls combined.
	bucket := ratelimit.New(config.RPM)

	geminiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.Gemini.APIKey,
		File:  config.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	switch {
	case err != nil:
		logger.Warn("gemini provider disabled", zap.Error(err))
	default:
		client, err := gemini.New(ctx, geminiKey, config.Gemini.Model, bucket, logger)
		if err != nil {
			return nil, fmt.Errorf("building gemini client: %w", err)
		}
		providers = append(providers, client)
	}

	groqKey, err := secrets.Load(secrets.Source{
		Name:  "groq api key",
		Value: config.Groq.APIKey,
		File:  config.Groq.APIKeyFile,
		Env:   "GROQ_API_KEY",
	})
	switch {
	case err != nil:
		logger.Warn("groq provider disabled", zap.Error(err))
	default:
		client := groq.New(groqKey, config.Groq.Model, bucket, logger)
		if config.Groq.BaseURL != "" {
			client.SetBaseURL(config.Groq.BaseURL)
		}
		providers = append(providers, client)
	}

	return providers, nil
}
