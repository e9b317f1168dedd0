package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ignite/crm-backend/internal/pkg/httpretry"
)

// HTTPTransport posts messages as JSON to a mail relay endpoint.
type HTTPTransport struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewHTTPTransport creates a transport for the relay at baseURL.
// client is typically an httpretry.RetryClient.
func NewHTTPTransport(baseURL, apiKey string, client httpretry.HTTPDoer) *HTTPTransport {
	return &HTTPTransport{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: client,
	}
}

// Send posts one message to the relay's /send endpoint.
func (t *HTTPTransport) Send(ctx context.Context, msg Message) error {
	jsonBody, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/send", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("relay error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return nil
}
