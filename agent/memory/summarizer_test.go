package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

func TestOpenAISummarizer(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		body map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  Dewi wants a haircut.  "}}]}`)
	}))
	t.Cleanup(server.Close)

	client := openaisdk.NewClient(
		option.WithAPIKey("key"),
		option.WithBaseURL(server.URL+"/"),
		option.WithMaxRetries(0),
	)
	s, err := NewOpenAISummarizer(&client, "summary-model", 0)
	if err != nil {
		t.Fatalf("NewOpenAISummarizer() error = %v", err)
	}

	got, err := s.Summarize(context.Background(), "previous", []Turn{
		{Role: RoleUser, Text: "I want a haircut"},
		{Role: RoleAssistant, Text: "Sure, your name?"},
	})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got != "Dewi wants a haircut." {
		t.Fatalf("Summarize() = %q", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if body["model"] != "summary-model" {
		t.Fatalf("model = %v", body["model"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", body["messages"])
	}
	user, _ := msgs[1].(map[string]any)
	if content, _ := user["content"].(string); !strings.Contains(content, "previous") || !strings.Contains(content, "user: I want a haircut") {
		t.Fatalf("user content = %v", user["content"])
	}
}

func TestOpenAISummarizerNoEvictedTurns(t *testing.T) {
	t.Parallel()

	client := openaisdk.NewClient(option.WithAPIKey("key"))
	s, err := NewOpenAISummarizer(&client, "m", 100)
	if err != nil {
		t.Fatalf("NewOpenAISummarizer() error = %v", err)
	}
	got, err := s.Summarize(context.Background(), "keep", nil)
	if err != nil || got != "keep" {
		t.Fatalf("Summarize() = %q, %v", got, err)
	}
}

func TestNewOpenAISummarizerValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewOpenAISummarizer(nil, "m", 0); err == nil {
		t.Fatal("expected error for nil client")
	}
	client := openaisdk.NewClient(option.WithAPIKey("key"))
	if _, err := NewOpenAISummarizer(&client, " ", 0); err == nil {
		t.Fatal("expected error for empty model")
	}
}
