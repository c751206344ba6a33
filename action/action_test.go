package action

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIDetectIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "action_required") {
			t.Error("prompt missing schema instructions")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": `{"action_required": true}`}},
			},
		})
	}))
	defer srv.Close()

	engine := NewOpenAI("test-key")
	engine.apiURL = srv.URL

	got, err := engine.DetectIntent(context.Background(), "summarize this for me")
	if err != nil {
		t.Fatalf("DetectIntent: %v", err)
	}
	if !got {
		t.Error("expected action intent")
	}
}

func TestAnthropicGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{
				{"text": `{"output": "Dear team, ..."}`},
			},
		})
	}))
	defer srv.Close()

	engine := NewAnthropic("test-key")
	engine.apiURL = srv.URL

	out, err := engine.Generate(context.Background(), "email", "write an email to the team")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "Dear team, ..." {
		t.Errorf("out = %q", out)
	}
}

func TestOpenAIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	engine := NewOpenAI("test-key")
	engine.apiURL = srv.URL

	if _, err := engine.Transform(context.Background(), "notes", "text"); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestNewWithoutKeysReturnsNil(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	if engine := New(map[string]string{}); engine != nil {
		t.Errorf("New with no keys = %v, want nil", engine)
	}
}

func TestNewPrefersAnthropic(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	engine := New(map[string]string{"anthropic": "key-a", "openai": "key-b"})
	if engine == nil || engine.Name() != "anthropic" {
		t.Errorf("engine = %v", engine)
	}
}
