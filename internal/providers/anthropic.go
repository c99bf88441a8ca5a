package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/common/logging"
)

const anthropicVersion = "2023-06-01"

// anthropicValidationModel is the cheapest model, used for the one-token
// key validation probe.
const anthropicValidationModel = "claude-haiku-4-5"

// AnthropicClient talks to the Anthropic Messages API
type AnthropicClient struct {
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

// NewAnthropicClient creates a client for baseURL (empty means the public
// API endpoint)
func NewAnthropicClient(baseURL string, timeout time.Duration, logger logging.Logger) *AnthropicClient {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &AnthropicClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Name implements Provider
func (c *AnthropicClient) Name() string {
	return ProviderAnthropic
}

type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`

	Temperature *float64 `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate implements Provider
func (c *AnthropicClient) Generate(ctx context.Context, apiKey string, req *GenerateRequest) (*GenerateResponse, error) {
	temperature := req.Temperature
	payload := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Messages:    req.Messages,
		Temperature: &temperature,
	}

	status, body, err := c.post(ctx, apiKey, payload)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		c.logger.Error("Anthropic API error", nil,
			logging.Field{Key: "status", Value: status})
		return nil, upstreamStatusError(ProviderAnthropic, status)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.UpstreamError("anthropic returned malformed response", false, err)
	}
	if len(parsed.Content) == 0 {
		return nil, errors.UpstreamError("anthropic returned empty content", false, nil)
	}

	return &GenerateResponse{
		Content:      parsed.Content[0].Text,
		Model:        parsed.Model,
		FinishReason: parsed.StopReason,
		Usage: Usage{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
			TotalTokens:  parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}

// ValidateKey implements Provider. A one-token probe against the cheapest
// model; 429 means the key works but is busy.
func (c *AnthropicClient) ValidateKey(ctx context.Context, apiKey string) error {
	payload := anthropicRequest{
		Model:     anthropicValidationModel,
		MaxTokens: 1,
		Messages:  []Message{{Role: "user", Content: "Hi"}},
	}

	status, _, err := c.post(ctx, apiKey, payload)
	if err != nil {
		return err
	}

	switch status {
	case http.StatusOK, http.StatusTooManyRequests:
		return nil
	case http.StatusUnauthorized:
		return errors.AuthError("invalid Anthropic API key")
	case http.StatusForbidden:
		return errors.AuthError("Anthropic API key access forbidden")
	default:
		return upstreamStatusError(ProviderAnthropic, status)
	}
}

func (c *AnthropicClient) post(ctx context.Context, apiKey string, payload anthropicRequest) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, errors.InternalError("failed to encode anthropic request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return 0, nil, errors.InternalError("failed to build anthropic request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, errors.TimeoutError("anthropic request")
		}
		return 0, nil, errors.ConnectionError("anthropic request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return 0, nil, errors.ConnectionError("failed to read anthropic response", err)
	}

	return resp.StatusCode, body, nil
}

// upstreamStatusError classifies a non-200 provider status. Rate limits and
// server errors are retryable; everything else is the caller's problem.
func upstreamStatusError(provider string, status int) *errors.AppError {
	retryable := false
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		retryable = true
	}

	err := errors.UpstreamError(fmt.Sprintf("%s API error: %d", provider, status), retryable, nil)
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return errors.AuthError(fmt.Sprintf("%s rejected the API key", provider))
	}
	return err.WithContext("status", status).WithContext("provider", provider)
}
