// Package wordpress verifies plugin callback tokens against the tenant's
// WordPress site during registration.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/common/logging"
	"eaglechat-server/internal/retry"
)

const verifyPath = "/wp-json/eaglechat-plugin/v1/verify"

// Client calls back into a WordPress site to prove the registrant controls
// it. Network failures and 5xx responses are retried; a 4xx or an explicit
// rejection is final.
type Client struct {
	httpClient *http.Client
	retrier    *retry.Caller
	logger     logging.Logger
}

// NewClient creates a callback client. The retry config covers transient
// failures reaching the site.
func NewClient(timeout time.Duration, retryConfig retry.Config, logger logging.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		retrier:    retry.New(retryConfig, logger),
		logger:     logger,
	}
}

type verifyRequest struct {
	CallbackToken string `json:"callback_token"`
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// VerifyCallbackToken posts the token to the site's plugin endpoint and
// reports whether the site acknowledged it.
func (c *Client) VerifyCallbackToken(ctx context.Context, siteURL, callbackToken string) (bool, error) {
	callbackURL := strings.TrimRight(siteURL, "/") + verifyPath

	c.logger.Info("Verifying callback token with WordPress",
		logging.Field{Key: "url", Value: callbackURL})

	var verified bool
	err := c.retrier.Do(ctx, "wordpress callback verification", func(ctx context.Context) error {
		ok, callErr := c.verifyOnce(ctx, callbackURL, callbackToken)
		if callErr != nil {
			return callErr
		}
		verified = ok
		return nil
	})
	if err != nil {
		return false, err
	}

	return verified, nil
}

func (c *Client) verifyOnce(ctx context.Context, callbackURL, callbackToken string) (bool, error) {
	data, err := json.Marshal(verifyRequest{CallbackToken: callbackToken})
	if err != nil {
		return false, errors.InternalError("failed to encode verification request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(data))
	if err != nil {
		return false, errors.ValidationError(fmt.Sprintf("invalid callback URL: %s", callbackURL))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, errors.ConnectionError("wordpress callback request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, errors.ConnectionError("failed to read wordpress response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var parsed verifyResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return false, errors.UpstreamError("wordpress returned malformed verification response", false, err)
		}
		if !parsed.Success {
			c.logger.Warn("WordPress rejected callback token",
				logging.Field{Key: "message", Value: parsed.Message})
		}
		return parsed.Success, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// The site answered and said no. Retrying will not change its mind.
		return false, errors.UpstreamError(fmt.Sprintf("wordpress callback returned %d", resp.StatusCode), false, nil)

	default:
		return false, errors.UpstreamError(fmt.Sprintf("wordpress callback returned %d", resp.StatusCode), true, nil)
	}
}
