package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestCompatProvider(t *testing.T, handler http.HandlerFunc) *CompatProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewCompatProvider(ProviderGLM, CompatConfig{
		APIKey:  "test-key",
		Model:   "glm-4-flash",
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("new compat provider: %v", err)
	}
	return p
}

func chatReply(content, finish string) map[string]any {
	return map[string]any{
		"id":    "chatcmpl-test",
		"model": "glm-4-flash",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20},
	}
}

func verdictSchema() *Schema {
	return &Schema{
		Name: "compat-verdict-test",
		Definition: map[string]any{
			"type":       "object",
			"properties": map[string]any{"pass": map[string]any{"type": "boolean"}},
			"required":   []any{"pass"},
		},
	}
}

func TestCompatProvider_ExtractsJSONFromProse(t *testing.T) {
	var got compatRequest
	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatReply("Sure!\n```json\n{\"pass\": true, \"reason\": \"ok\"}\n```", "stop"))
	}

	p := newTestCompatProvider(t, handler)
	resp, err := p.Generate(context.Background(), Request{
		System:      "You judge learner replies.",
		Messages:    UserMessage("Learner: A large latte, please."),
		Schema:      verdictSchema(),
		MaxTokens:   300,
		Temperature: 0.3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"pass": true, "reason": "ok"}` {
		t.Fatalf("content = %s", resp.Content)
	}
	if resp.Usage.TotalTokens != 20 {
		t.Fatalf("expected 20 total tokens, got %d", resp.Usage.TotalTokens)
	}
	if got.Model != "glm-4-flash" || got.MaxTokens != 300 {
		t.Fatalf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	if !strings.Contains(got.Messages[0].Content, "JSON Schema") {
		t.Fatalf("system prompt lacks schema: %q", got.Messages[0].Content)
	}
}

func TestCompatProvider_NoJSON(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatReply("I think it passes.", "stop"))
	}

	p := newTestCompatProvider(t, handler)
	_, err := p.Generate(context.Background(), Request{Messages: UserMessage("x"), Schema: verdictSchema()})
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got: %T (%v)", err, err)
	}
}

func TestCompatProvider_PlainText(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatReply("  hello  ", "stop"))
	}

	p := newTestCompatProvider(t, handler)
	resp, err := p.Generate(context.Background(), Request{Messages: UserMessage("x")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != "hello" {
		t.Fatalf("content = %q", resp.Content)
	}
}

func TestCompatProvider_RateLimit(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "slow down"}})
	}

	p := newTestCompatProvider(t, handler)
	_, err := p.Generate(context.Background(), Request{Messages: UserMessage("x")})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got: %T (%v)", err, err)
	}
}

func TestNewCompatProvider_RequiresKeyAndURL(t *testing.T) {
	if _, err := NewCompatProvider(ProviderNVIDIA, CompatConfig{BaseURL: "https://x"}); err == nil {
		t.Fatal("expected error for missing key")
	}
	if _, err := NewCompatProvider(ProviderNVIDIA, CompatConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
}
