package providers

import (
	"context"
	"fmt"
	"time"

	"eaglechat-server/internal/circuitbreaker"
	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/common/logging"
	"eaglechat-server/internal/retry"
	"eaglechat-server/internal/storage"
	"eaglechat-server/internal/vault"
)

// Service routes chat requests to the right provider with the tenant's own
// API key. Every upstream call runs inside a per-provider circuit breaker,
// and the whole breaker-wrapped call is retried with exponential backoff.
type Service struct {
	vault     *vault.Vault
	providers map[string]Provider
	breakers  *circuitbreaker.GoBreakerManager
	retrier   *retry.Caller
	logger    logging.Logger
}

// ServiceOptions configures a provider Service
type ServiceOptions struct {
	AnthropicBaseURL string
	OpenAIBaseURL    string
	Timeout          time.Duration
	Retry            retry.Config
}

// NewService creates a Service with real provider clients
func NewService(v *vault.Vault, opts ServiceOptions, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	anthropic := NewAnthropicClient(opts.AnthropicBaseURL, opts.Timeout, logger)
	openai := NewOpenAIClient(opts.OpenAIBaseURL, opts.Timeout, logger)

	return &Service{
		vault: v,
		providers: map[string]Provider{
			anthropic.Name(): anthropic,
			openai.Name():    openai,
		},
		breakers: circuitbreaker.NewGoBreakerManager(logger),
		retrier:  retry.New(opts.Retry, logger),
		logger:   logger,
	}
}

// RegisterProvider replaces or adds a provider implementation. Tests use
// this to install fakes.
func (s *Service) RegisterProvider(p Provider) {
	s.providers[p.Name()] = p
}

// ChatRequest is one tenant-scoped generation request using a public model
// alias.
type ChatRequest struct {
	TenantID    string
	Model       string
	Message     string
	History     []storage.ConversationEntry
	Temperature float64
	MaxTokens   int
}

// Chat resolves the model alias, fetches the tenant's provider key from the
// vault, and calls the provider. A missing key is an auth error; the tenant
// has not configured that provider.
func (s *Service) Chat(ctx context.Context, req *ChatRequest) (*GenerateResponse, error) {
	model, err := ResolveModel(req.Model)
	if err != nil {
		return nil, err
	}

	provider, ok := s.providers[model.Provider]
	if !ok {
		return nil, errors.ConfigError(fmt.Sprintf("no client registered for provider %s", model.Provider))
	}

	apiKey, err := s.tenantKey(ctx, req.TenantID, model.Provider)
	if err != nil {
		return nil, err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = model.DefaultMaxTokens
	}

	generateReq := &GenerateRequest{
		Model:       model.UpstreamName,
		Messages:    buildConversationContext(req.Message, req.History),
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	}

	start := time.Now()

	var response *GenerateResponse
	err = s.retrier.Do(ctx, model.Provider+" generate", func(ctx context.Context) error {
		return s.breakers.Execute(ctx, model.Provider, circuitbreaker.ProviderConfig, func() error {
			result, callErr := provider.Generate(ctx, apiKey, generateReq)
			if callErr != nil {
				return callErr
			}
			response = result
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("AI generation completed",
		logging.Field{Key: "tenant_id", Value: req.TenantID},
		logging.Field{Key: "model", Value: req.Model},
		logging.Field{Key: "input_tokens", Value: response.Usage.InputTokens},
		logging.Field{Key: "output_tokens", Value: response.Usage.OutputTokens},
		logging.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})

	return response, nil
}

// ValidateKey probes a provider with a candidate API key before it is
// stored. The key never touches the vault unless the probe passes.
func (s *Service) ValidateKey(ctx context.Context, providerName, apiKey string) error {
	provider, ok := s.providers[providerName]
	if !ok {
		return errors.ValidationError(fmt.Sprintf("unsupported provider: %s", providerName))
	}
	return provider.ValidateKey(ctx, apiKey)
}

// KeyPurpose maps a provider name to its vault purpose
func KeyPurpose(providerName string) (vault.Purpose, error) {
	switch providerName {
	case ProviderAnthropic:
		return vault.PurposeAnthropic, nil
	case ProviderOpenAI:
		return vault.PurposeOpenAI, nil
	default:
		return "", errors.ValidationError(fmt.Sprintf("unsupported provider: %s", providerName))
	}
}

// BreakerStats reports the state of all provider circuit breakers
func (s *Service) BreakerStats() []circuitbreaker.Stats {
	return s.breakers.AllStats()
}

func (s *Service) tenantKey(ctx context.Context, tenantID, providerName string) (string, error) {
	purpose, err := KeyPurpose(providerName)
	if err != nil {
		return "", err
	}

	secret, err := s.vault.GetSecret(ctx, tenantID, purpose)
	if err != nil {
		return "", err
	}
	if secret == nil {
		return "", errors.AuthError(fmt.Sprintf("%s API key not configured for this tenant", providerName))
	}

	return secret.Value, nil
}

// buildConversationContext flattens stored history plus the current message
// into the provider message list, oldest first.
func buildConversationContext(message string, history []storage.ConversationEntry) []Message {
	messages := make([]Message, 0, len(history)+1)
	for _, entry := range history {
		if entry.Content == "" {
			continue
		}
		messages = append(messages, Message{Role: entry.Role, Content: entry.Content})
	}
	messages = append(messages, Message{Role: "user", Content: message})
	return messages
}
