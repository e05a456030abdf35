package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/modacart/modacart-backend/pkg/errors"
)

const responseBodyReadLimit int64 = 4096

// Client submits finalized orders to the external order service.
type Client struct {
	httpClient *http.Client
	submitURL  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the order submission client.
func NewClient(submitURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(submitURL)
	if trimmed == "" {
		return nil, fmt.Errorf("orders: submit URL is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		submitURL:  trimmed,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Submit posts the order exactly once and returns the assigned order number.
// A rejected submission is not retried; the service's error message is
// surfaced to the caller as-is.
func (c *Client) Submit(ctx context.Context, submission Submission) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "order client not configured")
	}
	if len(submission.Items) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}

	payload, err := json.Marshal(submission)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal order submission")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.submitURL, bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build order submission request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute order submission request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &apiErr); err == nil && strings.TrimSpace(apiErr.Error) != "" {
			return "", pkgerrors.New(pkgerrors.CodeDependency, apiErr.Error)
		}
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("order service returned status %d", resp.StatusCode))
	}

	var apiResp struct {
		OrderNumber string `json:"order_number"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode order submission response")
	}
	if strings.TrimSpace(apiResp.OrderNumber) == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "order service returned no order number")
	}
	return apiResp.OrderNumber, nil
}
