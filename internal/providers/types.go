// Package providers contains the HTTP clients for external AI providers and
// the service that routes chat requests to them through the vault, circuit
// breakers, and the retry wrapper.
package providers

import (
	"context"
	"strings"
)

// Message is one turn of a conversation sent to a provider
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token consumption for one provider call
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// GenerateRequest is a provider-agnostic generation request. Model carries
// the upstream model name, already resolved from the public alias.
type GenerateRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// GenerateResponse is the normalized provider reply
type GenerateResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	FinishReason string `json:"finish_reason"`
	Usage        Usage  `json:"usage"`
}

// Provider is one upstream AI API. Implementations never store API keys;
// the caller resolves the tenant's key from the vault per request.
type Provider interface {
	Name() string
	Generate(ctx context.Context, apiKey string, req *GenerateRequest) (*GenerateResponse, error)
	// ValidateKey probes the provider with a minimal request. A rate limit
	// response counts as valid; only explicit auth rejections fail.
	ValidateKey(ctx context.Context, apiKey string) error
}

// MaskKey renders an API key for admin display: first 8 and last 4
// characters with the middle starred. Keys too short to mask safely are
// fully starred.
func MaskKey(key string) string {
	if len(key) <= 12 {
		return strings.Repeat("*", len(key))
	}
	return key[:8] + strings.Repeat("*", len(key)-12) + key[len(key)-4:]
}
