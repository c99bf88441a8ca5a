package providers

import (
	"fmt"
	"sort"

	"eaglechat-server/internal/common/errors"
)

// Provider names used for routing and vault purposes
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// ModelConfig maps a public model alias to its upstream identity
type ModelConfig struct {
	Provider         string `json:"provider"`
	UpstreamName     string `json:"upstream_name"`
	DefaultMaxTokens int    `json:"default_max_tokens"`
}

// ModelConfigs is the static alias table. Update when new models are
// released; ValidateModels runs at startup to catch bad entries.
var ModelConfigs = map[string]ModelConfig{
	"claude-sonnet": {Provider: ProviderAnthropic, UpstreamName: "claude-sonnet-4-5", DefaultMaxTokens: 4096},
	"claude-haiku":  {Provider: ProviderAnthropic, UpstreamName: "claude-haiku-4-5", DefaultMaxTokens: 4096},
	"claude-opus":   {Provider: ProviderAnthropic, UpstreamName: "claude-opus-4-1", DefaultMaxTokens: 4096},

	"openai-gpt5":      {Provider: ProviderOpenAI, UpstreamName: "gpt-5", DefaultMaxTokens: 4096},
	"openai-gpt5-mini": {Provider: ProviderOpenAI, UpstreamName: "gpt-5-mini", DefaultMaxTokens: 4096},
	"openai-gpt5-nano": {Provider: ProviderOpenAI, UpstreamName: "gpt-5-nano", DefaultMaxTokens: 4096},

	// Previous generation kept for existing tenant configurations.
	"openai-gpt4":      {Provider: ProviderOpenAI, UpstreamName: "gpt-4o", DefaultMaxTokens: 4096},
	"openai-gpt-mini":  {Provider: ProviderOpenAI, UpstreamName: "gpt-4o-mini", DefaultMaxTokens: 4096},
	"openai-gpt-turbo": {Provider: ProviderOpenAI, UpstreamName: "gpt-4-turbo", DefaultMaxTokens: 4096},
}

// ResolveModel looks up a public alias. Unknown aliases are a validation
// error so callers surface a 400, not a provider failure.
func ResolveModel(alias string) (ModelConfig, error) {
	config, ok := ModelConfigs[alias]
	if !ok {
		return ModelConfig{}, errors.ValidationError(fmt.Sprintf("unsupported model: %s", alias))
	}
	return config, nil
}

// ModelAliases returns the supported aliases in sorted order
func ModelAliases() []string {
	aliases := make([]string, 0, len(ModelConfigs))
	for alias := range ModelConfigs {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// ValidateModels checks the alias table for entries that would fail at
// request time. Called once at startup.
func ValidateModels() error {
	for alias, config := range ModelConfigs {
		if config.UpstreamName == "" {
			return errors.ConfigError(fmt.Sprintf("model %s has no upstream name", alias))
		}
		if config.DefaultMaxTokens <= 0 {
			return errors.ConfigError(fmt.Sprintf("model %s has invalid default max tokens", alias))
		}
		switch config.Provider {
		case ProviderAnthropic, ProviderOpenAI:
		default:
			return errors.ConfigError(fmt.Sprintf("model %s references unknown provider %s", alias, config.Provider))
		}
	}
	return nil
}
