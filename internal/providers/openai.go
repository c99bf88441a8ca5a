package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/common/logging"
)

// openaiValidationModel is the cheapest model, used for the one-token key
// validation probe.
const openaiValidationModel = "gpt-4o-mini"

// OpenAIClient talks to the OpenAI Chat Completions API
type OpenAIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

// NewOpenAIClient creates a client for baseURL (empty means the public API
// endpoint)
func NewOpenAIClient(baseURL string, timeout time.Duration, logger logging.Logger) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &OpenAIClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Name implements Provider
func (c *OpenAIClient) Name() string {
	return ProviderOpenAI
}

type openaiRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`

	Temperature *float64 `json:"temperature,omitempty"`
}

type openaiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate implements Provider
func (c *OpenAIClient) Generate(ctx context.Context, apiKey string, req *GenerateRequest) (*GenerateResponse, error) {
	temperature := req.Temperature
	payload := openaiRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: &temperature,
	}

	status, body, err := c.post(ctx, apiKey, payload)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		c.logger.Error("OpenAI API error", nil,
			logging.Field{Key: "status", Value: status})
		return nil, upstreamStatusError(ProviderOpenAI, status)
	}

	var parsed openaiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.UpstreamError("openai returned malformed response", false, err)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.UpstreamError("openai returned no choices", false, nil)
	}

	return &GenerateResponse{
		Content:      parsed.Choices[0].Message.Content,
		Model:        parsed.Model,
		FinishReason: parsed.Choices[0].FinishReason,
		Usage: Usage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
			TotalTokens:  parsed.Usage.TotalTokens,
		},
	}, nil
}

// ValidateKey implements Provider
func (c *OpenAIClient) ValidateKey(ctx context.Context, apiKey string) error {
	payload := openaiRequest{
		Model:     openaiValidationModel,
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
		return errors.AuthError("invalid OpenAI API key")
	case http.StatusForbidden:
		return errors.AuthError("OpenAI API key access forbidden")
	default:
		return upstreamStatusError(ProviderOpenAI, status)
	}
}

func (c *OpenAIClient) post(ctx context.Context, apiKey string, payload openaiRequest) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, errors.InternalError("failed to encode openai request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return 0, nil, errors.InternalError("failed to build openai request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, errors.TimeoutError("openai request")
		}
		return 0, nil, errors.ConnectionError("openai request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return 0, nil, errors.ConnectionError("failed to read openai response", err)
	}

	return resp.StatusCode, body, nil
}
