package llm

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
	openrouterx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/pkg/openrouter"
)

// NewCompleter builds the completer selected by cfg.Provider.
func NewCompleter(ctx context.Context, cfg Config) (contractx.Completer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrConfiguration, err)
	}

	orCfg := cfg.OpenRouter()
	defaults := contractx.CompletionParams{
		Model:     orCfg.Model,
		MaxTokens: cfg.MaxCompletionToken,
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderEino:
		m, err := orCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w: %v", contractx.ErrConfiguration, contractx.ErrModelInvoke, err)
		}
		return NewChatModelCompleter(m, defaults)
	default:
		client := openrouterx.NewClient(orCfg)
		if client == nil {
			return nil, fmt.Errorf("%w: openai client could not be built", contractx.ErrConfiguration)
		}
		return NewOpenAICompleter(client, defaults)
	}
}
