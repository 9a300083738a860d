package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
	openrouterx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/pkg/openrouter"
)

const (
	ProviderOpenAI = "openai"
	ProviderEino   = "eino"
)

// Purpose selects per-call overrides. Handler calls use their destination.
type Purpose string

const (
	PurposeRouter  Purpose = "router"
	PurposeSQL     Purpose = Purpose(contractx.DestinationSQL)
	PurposeRAG     Purpose = Purpose(contractx.DestinationRAG)
	PurposeAction  Purpose = Purpose(contractx.DestinationAction)
	PurposeDefault Purpose = Purpose(contractx.DestinationDefault)
)

type Config struct {
	Provider           string        `envconfig:"PROVIDER" split_words:"true" default:"openai"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	RouterModel        string  `envconfig:"ROUTER_MODEL" split_words:"true"`
	SQLModel           string  `envconfig:"SQL_MODEL" split_words:"true"`
	RAGModel           string  `envconfig:"RAG_MODEL" split_words:"true"`
	ActionModel        string  `envconfig:"ACTION_MODEL" split_words:"true"`
	DefaultModel       string  `envconfig:"DEFAULT_MODEL" split_words:"true"`
	RouterTemperature  float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"0"`
	SQLTemperature     float32 `envconfig:"SQL_TEMPERATURE" split_words:"true" default:"0"`
	RAGTemperature     float32 `envconfig:"RAG_TEMPERATURE" split_words:"true" default:"-1"`
	ActionTemperature  float32 `envconfig:"ACTION_TEMPERATURE" split_words:"true" default:"0"`
	DefaultTemperature float32 `envconfig:"DEFAULT_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case ProviderOpenAI, ProviderEino:
	default:
		return fmt.Errorf("%w: unsupported llm provider=%q", contractx.ErrValidation, c.Provider)
	}
	if c.MaxCompletionToken < 0 {
		return fmt.Errorf("%w: max completion token must be >= 0", contractx.ErrValidation)
	}
	return nil
}

// ParamsFor resolves model and temperature for one purpose. A negative
// temperature override means "use the global temperature".
func (c Config) ParamsFor(purpose Purpose) contractx.CompletionParams {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	var overrideModel string
	overrideTemp := float32(-1)
	switch purpose {
	case PurposeRouter:
		overrideModel, overrideTemp = c.RouterModel, c.RouterTemperature
	case PurposeSQL:
		overrideModel, overrideTemp = c.SQLModel, c.SQLTemperature
	case PurposeRAG:
		overrideModel, overrideTemp = c.RAGModel, c.RAGTemperature
	case PurposeAction:
		overrideModel, overrideTemp = c.ActionModel, c.ActionTemperature
	case PurposeDefault:
		overrideModel, overrideTemp = c.DefaultModel, c.DefaultTemperature
	}
	if v := strings.TrimSpace(overrideModel); v != "" {
		modelName = v
	}
	if overrideTemp >= 0 {
		temp = overrideTemp
	}

	return contractx.CompletionParams{
		Model:       modelName,
		MaxTokens:   c.MaxCompletionToken,
		Temperature: &temp,
	}
}

// OpenRouter returns the client settings shared by both providers.
func (c Config) OpenRouter() openrouterx.Config {
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// MergeParams overlays the non-zero fields of override onto base.
func MergeParams(base, override contractx.CompletionParams) contractx.CompletionParams {
	out := base
	if v := strings.TrimSpace(override.Model); v != "" {
		out.Model = v
	}
	if override.MaxTokens > 0 {
		out.MaxTokens = override.MaxTokens
	}
	if override.Temperature != nil {
		t := *override.Temperature
		out.Temperature = &t
	}
	if len(override.Stop) > 0 {
		out.Stop = append([]string(nil), override.Stop...)
	}
	return out
}
