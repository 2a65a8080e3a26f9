package llm

import (
	"errors"
	"testing"

	"golang.org/x/time/rate"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := (Config{Model: "m"}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing key, got %v", err)
	}
	if err := (Config{APIKey: "k"}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing model, got %v", err)
	}
	if err := (Config{APIKey: "k", Model: "m"}).Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestFallback(t *testing.T) {
	t.Parallel()

	base := Config{BaseURL: "https://openrouter.ai/api/v1", APIKey: " primary ", Model: "primary-model", MaxCompletionToken: 100}

	if _, ok := base.Fallback(); ok {
		t.Fatal("fallback must be disabled without key or model")
	}

	withModel := base
	withModel.FallbackModel = "backup-model"
	fb, ok := withModel.Fallback()
	if !ok || fb.Model != "backup-model" || fb.APIKey != "primary" {
		t.Fatalf("unexpected fallback: %+v ok=%v", fb, ok)
	}

	withKey := base
	withKey.FallbackAPIKey = "secondary"
	withKey.FallbackBaseURL = "https://backup.example/v1"
	fb, ok = withKey.Fallback()
	if !ok || fb.APIKey != "secondary" || fb.Model != "primary-model" || fb.BaseURL != "https://backup.example/v1" {
		t.Fatalf("unexpected fallback: %+v ok=%v", fb, ok)
	}
	if *fb.MaxCompletionToken != 100 {
		t.Fatalf("max tokens = %d", *fb.MaxCompletionToken)
	}
}

func TestSummaryModelDefaultsToPrimary(t *testing.T) {
	t.Parallel()

	cfg := Config{APIKey: "k", Model: "primary-model"}
	if _, m := cfg.Summary(); m != "primary-model" {
		t.Fatalf("summary model = %q", m)
	}
	cfg.SummaryModel = "cheap-model"
	if _, m := cfg.Summary(); m != "cheap-model" {
		t.Fatalf("summary model = %q", m)
	}
}

func TestLimiter(t *testing.T) {
	t.Parallel()

	if l := (Config{}).Limiter(); l.Limit() != rate.Inf {
		t.Fatalf("limit = %v, want Inf", l.Limit())
	}
	l := Config{RequestsPerSecond: 2, Burst: 3}.Limiter()
	if l.Limit() != 2 || l.Burst() != 3 {
		t.Fatalf("limit = %v burst = %d", l.Limit(), l.Burst())
	}
}
