package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"
)

const completion = `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"pong"}}]}`

type recorder struct {
	mu      sync.Mutex
	headers []http.Header
}

func (r *recorder) last() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headers[len(r.headers)-1]
}

func newServer(t *testing.T) (*httptest.Server, *recorder) {
	t.Helper()

	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.headers = append(rec.headers, r.Header.Clone())
		rec.mu.Unlock()
		if r.URL.Path != "/api/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completion)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestNewChatModelSendsAttributionHeaders(t *testing.T) {
	t.Parallel()

	srv, rec := newServer(t)
	maxTokens := 100
	cfg := &Config{
		BaseURL:            srv.URL + "/api/v1/",
		APIKey:             " key ",
		Model:              "openai/gpt-4o-mini",
		MaxCompletionToken: &maxTokens,
		Timeout:            5 * time.Second,
		SiteURL:            "https://example.com",
		SiteName:           "whatsbot",
	}

	m, err := cfg.New(context.Background())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	out, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("ping")})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out.Content != "pong" {
		t.Fatalf("content = %q", out.Content)
	}

	h := rec.last()
	if h.Get("Authorization") != "Bearer key" {
		t.Fatalf("authorization = %q", h.Get("Authorization"))
	}
	if h.Get("HTTP-Referer") != "https://example.com" || h.Get("X-Title") != "whatsbot" {
		t.Fatalf("attribution headers missing: %v", h)
	}
}

func TestNewClientSendsAttributionHeaders(t *testing.T) {
	t.Parallel()

	srv, rec := newServer(t)
	client, err := NewClient(Config{
		BaseURL:  srv.URL + "/api/v1",
		APIKey:   "key",
		SiteName: "whatsbot",
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	resp, err := client.Chat.Completions.New(context.Background(), openaisdk.ChatCompletionNewParams{
		Model:    "m",
		Messages: []openaisdk.ChatCompletionMessageParamUnion{openaisdk.UserMessage("ping")},
	})
	if err != nil {
		t.Fatalf("Completions.New() error = %v", err)
	}
	if resp.Choices[0].Message.Content != "pong" {
		t.Fatalf("content = %q", resp.Choices[0].Message.Content)
	}
	if got := rec.last().Get("X-Title"); got != "whatsbot" {
		t.Fatalf("X-Title = %q", got)
	}
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error without api key")
	}
	if _, err := (&Config{APIKey: "k"}).New(context.Background()); err == nil {
		t.Fatal("expected error without model")
	}
}
