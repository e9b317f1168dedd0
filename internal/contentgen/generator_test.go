package contentgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ignite/crm-backend/internal/domain"
)

func spendRules() domain.RuleSet {
	return domain.RuleSet{
		Combinator: domain.CombinatorAnd,
		Rules:      []domain.Rule{{Field: "total_spent", Operator: ">", Value: float64(5000)}},
	}
}

func completionsServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[1].Content, "total_spent") {
			t.Error("prompt does not carry the segment rules")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
}

func TestDraft(t *testing.T) {
	srv := completionsServer(t, "Subject: Big savings for our best customers\n\nBody:\nYou have earned something special.\n\nBest regards")
	defer srv.Close()

	g := NewGenerator(srv.URL, "test-key", "", srv.Client())
	d, err := g.Draft(context.Background(), spendRules())
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if d.Subject != "Big savings for our best customers" {
		t.Fatalf("unexpected subject %q", d.Subject)
	}
	if !strings.HasPrefix(d.Body, "You have earned") {
		t.Fatalf("unexpected body %q", d.Body)
	}
}

func TestDraftMissingAPIKey(t *testing.T) {
	g := NewGenerator("", "", "", nil)
	if _, err := g.Draft(context.Background(), spendRules()); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestDraftUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "invalid api key", "type": "auth"},
		})
	}))
	defer srv.Close()

	g := NewGenerator(srv.URL, "test-key", "", srv.Client())
	_, err := g.Draft(context.Background(), spendRules())
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestParseDraft(t *testing.T) {
	d, err := parseDraft("Subject: Hello\n\nBody:\nHi there.")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Subject != "Hello" || d.Body != "Hi there." {
		t.Fatalf("unexpected draft %+v", d)
	}

	// No Body marker: first line is the subject, the rest is the body.
	d, err = parseDraft("Subject: Hello\nHi there.")
	if err != nil {
		t.Fatalf("parse without marker: %v", err)
	}
	if d.Subject != "Hello" || d.Body != "Hi there." {
		t.Fatalf("unexpected draft %+v", d)
	}

	if _, err := parseDraft("no markers at all"); err == nil {
		t.Fatal("expected error for output without markers")
	}
}
