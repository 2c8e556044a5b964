package monime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/config"
	"github.com/farmtrust/paymentsapi/pkg/errors"
)

type Client struct {
	baseURL    string
	apiKey     string
	spaceID    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Monime API client
func NewClient(cfg config.MonimeConfig, logger *zap.Logger) *Client {
	// Normalize base URL - remove trailing slashes
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		spaceID: cfg.SpaceID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// apiResponse is the envelope Monime wraps every payload in
type apiResponse struct {
	Success  bool            `json:"success"`
	Result   json.RawMessage `json:"result"`
	Messages []apiMessage    `json:"messages,omitempty"`
}

type apiMessage struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// do executes an API call. idempotencyKey may be empty for read calls.
// Transport failures and 5xx responses come back as ErrProviderUnavailable
// so callers can retry with the same reference.
func (c *Client) do(ctx context.Context, method, path string, idempotencyKey string, payload, out interface{}) error {
	url := c.baseURL + path

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Monime-Space-Id", c.spaceID)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Monime request failed", zap.String("path", path), zap.Error(err))
		return &errors.ErrProviderUnavailable{Operation: method + " " + path, Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.ErrProviderUnavailable{Operation: method + " " + path, Cause: err}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Warn("Monime server error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return &errors.ErrProviderUnavailable{
			Operation: method + " " + path,
			Cause:     fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	if resp.StatusCode == http.StatusNotFound {
		return &errors.ErrNotFound{Resource: "payment", ID: path}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("monime API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !envelope.Success {
		return fmt.Errorf("monime rejected request: %v", envelope.Messages)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("failed to parse result: %w", err)
		}
	}

	return nil
}
