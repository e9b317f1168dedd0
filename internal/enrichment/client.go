package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ignite/crm-backend/internal/pkg/httpretry"
)

// Client talks to the scoring service. Retries belong to the HTTPDoer
// it is constructed with; the client itself makes one attempt per call.
type Client struct {
	baseURL    string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a scoring client for the service at baseURL.
func NewClient(baseURL string, httpClient httpretry.HTTPDoer) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// PredictChurn scores a batch of customers for churn risk.
func (c *Client) PredictChurn(ctx context.Context, features []ChurnFeatures) ([]ChurnScore, error) {
	var scores []ChurnScore
	if err := c.post(ctx, "/predict-churn", features, &scores); err != nil {
		return nil, fmt.Errorf("predict churn: %w", err)
	}
	return scores, nil
}

// Recommend produces product recommendations for customers that have
// already been churn-scored.
func (c *Client) Recommend(ctx context.Context, features []RecommendFeatures) ([]Recommendation, error) {
	var recs []Recommendation
	if err := c.post(ctx, "/recommend", features, &recs); err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	return recs, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("scoring service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
