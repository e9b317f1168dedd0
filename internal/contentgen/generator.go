// Package contentgen drafts campaign subject lines and bodies from a
// segment's rule set using an OpenAI-compatible chat completions API.
package contentgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ignite/crm-backend/internal/domain"
	"github.com/ignite/crm-backend/internal/pkg/httpretry"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o"

	systemPrompt = "You are a professional marketing copywriter."
)

// Draft is a generated campaign template suggestion.
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Generator produces campaign drafts via a chat completions endpoint.
type Generator struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient httpretry.HTTPDoer
}

// NewGenerator creates a Generator. baseURL and model fall back to the
// OpenAI defaults when empty, so any OpenAI-compatible endpoint works.
func NewGenerator(baseURL, apiKey, model string, httpClient httpretry.HTTPDoer) *Generator {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Generator{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Draft asks the model for a subject and body matching the audience the
// rule set describes. The model is told not to emit template
// placeholders; personalization happens at dispatch time, not here.
func (g *Generator) Draft(ctx context.Context, rules domain.RuleSet) (Draft, error) {
	if g.apiKey == "" {
		return Draft{}, fmt.Errorf("content generation API key not configured")
	}

	rulesJSON, err := json.MarshalIndent(rules.Rules, "", "  ")
	if err != nil {
		return Draft{}, fmt.Errorf("encode rules: %w", err)
	}

	prompt := fmt.Sprintf(`Write a marketing email for customers matching these segment rules:
%s

Guidelines:
- Do not use placeholders like {{name}} or {{total_spent}}.
- Infer the audience from the rules (e.g. "customers who spent over 5000" or "frequent buyers").
- Keep it concise, warm, and persuasive.

Return the result in this exact format:

Subject: [subject line]

Body:
[email body]`, rulesJSON)

	content, err := g.complete(ctx, prompt)
	if err != nil {
		return Draft{}, err
	}
	return parseDraft(content)
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   400,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completions request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat completions: %s", parsed.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat completions returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completions returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// parseDraft splits the model output on the Subject:/Body: markers the
// prompt demands.
func parseDraft(content string) (Draft, error) {
	subjIdx := strings.Index(content, "Subject:")
	if subjIdx < 0 {
		return Draft{}, fmt.Errorf("malformed draft: missing Subject marker")
	}
	rest := content[subjIdx+len("Subject:"):]

	var subject, body string
	if bodyIdx := strings.Index(rest, "Body:"); bodyIdx >= 0 {
		subject = rest[:bodyIdx]
		body = rest[bodyIdx+len("Body:"):]
	} else if nl := strings.Index(rest, "\n"); nl >= 0 {
		subject = rest[:nl]
		body = rest[nl+1:]
	} else {
		return Draft{}, fmt.Errorf("malformed draft: missing body")
	}

	d := Draft{
		Subject: strings.TrimSpace(subject),
		Body:    strings.TrimSpace(body),
	}
	if d.Subject == "" || d.Body == "" {
		return Draft{}, fmt.Errorf("malformed draft: empty subject or body")
	}
	return d, nil
}
