// Package webhookexec implements the action executor port as a signed
// webhook call to the tenant's automation backend.
package webhookexec

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	atotel "github.com/atendeco/atende/internal/adapter/otel"
	"github.com/atendeco/atende/internal/port/action"
	"github.com/atendeco/atende/internal/resilience"
)

const headerSignature = "X-Atende-Signature"

// Client executes actions by POSTing them to a webhook endpoint. Request
// bodies are signed with HMAC-SHA256 so the receiver can verify origin.
type Client struct {
	url        string
	secret     []byte
	httpClient *http.Client
	breaker    *resilience.Breaker
}

var _ action.Executor = (*Client)(nil)

// NewClient creates a new webhook executor client.
func NewClient(url, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		url:    url,
		secret: []byte(secret),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

type executePayload struct {
	Action  action.Request          `json:"action"`
	Context action.ExecutionContext `json:"context"`
}

// Execute posts the action to the webhook and decodes the outcome. An HTTP
// transport failure is an error; a decoded body with success=false is a
// business failure returned in the Result.
func (c *Client) Execute(ctx context.Context, req action.Request, execCtx action.ExecutionContext) (*action.Result, error) {
	ctx, span := atotel.StartActionSpan(ctx, req.Type, execCtx.TenantID)
	defer span.End()

	body, err := json.Marshal(executePayload{Action: req, Context: execCtx})
	if err != nil {
		return nil, fmt.Errorf("marshal action: %w", err)
	}

	var result action.Result
	call := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		httpReq.Header.Set("Content-Type", "application/json")
		if len(c.secret) > 0 {
			httpReq.Header.Set(headerSignature, Sign(c.secret, body))
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("executor API error %d: %s", resp.StatusCode, string(data))
		}

		if err := json.Unmarshal(data, &result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
		return nil
	}

	if c.breaker != nil {
		err = c.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Sign returns the hex HMAC-SHA256 signature for body, prefixed with the
// scheme name.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the body under secret,
// comparing in constant time.
func Verify(secret, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}
