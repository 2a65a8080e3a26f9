package llm

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
	openrouterx "github.com/tanpawarit/whatsbot-agent/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	// The fallback is used once per turn when the primary call fails. It is
	// enabled when either a key or a model is set; unset parts reuse the
	// primary values.
	FallbackBaseURL string `envconfig:"FALLBACK_BASE_URL" split_words:"true"`
	FallbackAPIKey  string `envconfig:"FALLBACK_API_KEY" split_words:"true"`
	FallbackModel   string `envconfig:"FALLBACK_MODEL" split_words:"true"`

	RequestsPerSecond float64 `envconfig:"REQUESTS_PER_SECOND" split_words:"true" default:"5"`
	Burst             int     `envconfig:"BURST" split_words:"true" default:"5"`

	SummaryModel     string `envconfig:"SUMMARY_MODEL" split_words:"true"`
	SummaryMaxTokens int64  `envconfig:"SUMMARY_MAX_TOKENS" split_words:"true" default:"300"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests per second must not be negative", contractx.ErrValidation)
	}
	return nil
}

func (c Config) Primary() openrouterx.Config {
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// Fallback returns the secondary model config and whether one is configured.
func (c Config) Fallback() (openrouterx.Config, bool) {
	key := strings.TrimSpace(c.FallbackAPIKey)
	modelName := strings.TrimSpace(c.FallbackModel)
	if key == "" && modelName == "" {
		return openrouterx.Config{}, false
	}

	cfg := c.Primary()
	if key != "" {
		cfg.APIKey = key
	}
	if modelName != "" {
		cfg.Model = modelName
	}
	if v := strings.TrimSpace(c.FallbackBaseURL); v != "" {
		cfg.BaseURL = v
	}
	return cfg, true
}

// Summary returns the client config and model used to summarize memory.
func (c Config) Summary() (openrouterx.Config, string) {
	modelName := strings.TrimSpace(c.SummaryModel)
	if modelName == "" {
		modelName = strings.TrimSpace(c.Model)
	}
	return c.Primary(), modelName
}

// Limiter paces model calls. Zero requests per second disables pacing.
func (c Config) Limiter() *rate.Limiter {
	if c.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := c.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.RequestsPerSecond), burst)
}
