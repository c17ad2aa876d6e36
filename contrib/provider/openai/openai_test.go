package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sweetpotato0/ewa-agent/agent"
)

func TestGenerateAgainstCompatibleServer(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"mistral",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"action\":\"get_findings\"}"}}],
"usage":{"prompt_tokens":12,"completion_tokens":5,"total_tokens":17}}`))
	}))
	defer srv.Close()

	p := New(&Config{APIKey: "ollama", BaseURL: srv.URL + "/v1", Model: "mistral"})
	out, err := agent.Complete(context.Background(), p, "which tool?")
	if err != nil {
		t.Fatalf("complete error: %v", err)
	}
	if out != `{"action":"get_findings"}` {
		t.Fatalf("unexpected reply %q", out)
	}
	if body["model"] != "mistral" {
		t.Fatalf("unexpected model %v", body["model"])
	}
	if temp, ok := body["temperature"].(float64); !ok || temp != 0 {
		t.Fatalf("expected temperature 0 to be sent, got %v", body["temperature"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %v", body["messages"])
	}
}

func TestGenerateRejectsNilRequest(t *testing.T) {
	if _, err := New(nil).Generate(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil request")
	}
}
