package qstash

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

var ErrInvalidSignature = errors.New("qstash: invalid signature")

type Config struct {
	URL               string        `split_words:"true" default:"https://qstash.upstash.io"`
	Token             string        `split_words:"true"`
	CurrentSigningKey string        `split_words:"true"`
	NextSigningKey    string        `split_words:"true"`
	Timeout           time.Duration `split_words:"true" default:"10s"`
	Retries           int           `split_words:"true" default:"3"`
	// DestinationURL is where QStash delivers queued messages, normally this
	// service's public /v1/qstash/messages endpoint.
	DestinationURL string `envconfig:"DESTINATION_URL" split_words:"true"`
	// CallbackURL receives the reply produced for each delivered message.
	CallbackURL string `envconfig:"CALLBACK_URL" split_words:"true"`
}

// Enabled reports whether enough is configured to publish and verify.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Token) != "" && strings.TrimSpace(c.DestinationURL) != ""
}

type Client struct {
	baseURL        string
	token          string
	destinationURL string
	callbackURL    string
	retries        int
	httpClient     *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("qstash url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("qstash token is required")
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(cfg.DestinationURL)); err != nil {
		return nil, fmt.Errorf("qstash destination url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		token:          strings.TrimSpace(cfg.Token),
		destinationURL: strings.TrimSpace(cfg.DestinationURL),
		callbackURL:    strings.TrimSpace(cfg.CallbackURL),
		retries:        cfg.Retries,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type publishResponse struct {
	MessageID string `json:"messageId"`
	Error     string `json:"error"`
}

// Publish enqueues payload as JSON for delivery to the destination URL and
// returns the QStash message id.
func (c *Client) Publish(ctx context.Context, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("qstash: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/publish/"+c.destinationURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("qstash: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Upstash-Retries", strconv.Itoa(max(c.retries, 0)))
	if c.callbackURL != "" {
		req.Header.Set("Upstash-Callback", c.callbackURL)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("qstash: publish: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("qstash: read response: %w", err)
	}

	var out publishResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode >= http.StatusMultipleChoices {
		msg := strings.TrimSpace(out.Error)
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return "", fmt.Errorf("qstash: publish status %d: %s", resp.StatusCode, msg)
	}
	if out.MessageID == "" {
		return "", errors.New("qstash: publish response has no message id")
	}
	return out.MessageID, nil
}

// Receiver verifies the Upstash-Signature header of delivered messages.
type Receiver struct {
	currentSigningKey string
	nextSigningKey    string
}

func NewReceiver(cfg Config) (*Receiver, error) {
	current := strings.TrimSpace(cfg.CurrentSigningKey)
	next := strings.TrimSpace(cfg.NextSigningKey)
	if current == "" && next == "" {
		return nil, errors.New("qstash signing key is required")
	}
	return &Receiver{currentSigningKey: current, nextSigningKey: next}, nil
}

// Verify checks signature against body. url, when set, must match the
// token subject. Keys are tried current first, then next, so rotation does
// not drop deliveries.
func (r *Receiver) Verify(signature string, body []byte, url string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return fmt.Errorf("%w: missing signature", ErrInvalidSignature)
	}

	var lastErr error
	for _, key := range []string{r.currentSigningKey, r.nextSigningKey} {
		if key == "" {
			continue
		}
		if err := verifyWithKey(signature, key, body, url); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalidSignature, lastErr)
}

func verifyWithKey(signature, key string, body []byte, url string) error {
	token, err := jwt.Parse(signature, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return errors.New("invalid token")
	}
	if !claims.VerifyIssuer("Upstash", true) {
		return errors.New("invalid issuer")
	}
	if url != "" {
		if sub, _ := claims["sub"].(string); sub != url {
			return fmt.Errorf("subject %q does not match %q", sub, url)
		}
	}

	want, _ := claims["body"].(string)
	if strings.TrimRight(want, "=") != BodyHash(body) {
		return errors.New("body hash mismatch")
	}
	return nil
}

// BodyHash is the unpadded base64url SHA-256 of body, as carried in the
// signature's body claim.
func BodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum[:]), "=")
}
