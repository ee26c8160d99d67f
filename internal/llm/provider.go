package llm

import (
	"context"
	"fmt"

	"doc-splitter/pkg/config"

	"go.uber.org/zap"
)

// Provider is a Client that holds resources until closed.
type Provider interface {
	Client
	Close() error
}

// New builds the provider selected by cfg.Provider with the compiled-in prompt
// templates, throttled to cfg.RequestsPerSecond.
func New(ctx context.Context, cfg *config.LLMConfig, logger *zap.Logger) (Provider, error) {
	templates := DefaultTemplates()

	var p Provider
	switch cfg.Provider {
	case config.ProviderGigaChat:
		g, err := NewGigaChat(ctx, cfg, templates, logger)
		if err != nil {
			return nil, err
		}
		p = g
	case config.ProviderOpenAI:
		p = NewOpenAI(cfg, templates, logger)
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Provider, ErrUnknownProvider)
	}

	return WithRateLimit(p, cfg.RequestsPerSecond, cfg.Burst), nil
}
