package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultStoreKeyPrefix = "whatsbot:booking:"
	maxResponseSizeBytes  = 2 << 20
)

// StoreOption customizes UpstashStore.
type StoreOption func(*UpstashStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *UpstashStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *UpstashStore) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashStore persists BookingState in Upstash Redis via REST.
//
// Update is a read-merge-write and is not atomic across processes; turns for
// one session must be serialized by the caller.
type UpstashStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
	now        func() time.Time
}

var _ Store = (*UpstashStore)(nil)

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	TTL     time.Duration `envconfig:"TTL" split_words:"true" default:"168h"`
}

// NewUpstashStore builds a store on the Upstash REST API. Sessions expire
// cfg.TTL after their last write; a zero TTL keeps them until cleared.
func NewUpstashStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	store := &UpstashStore{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		keyPrefix: defaultStoreKeyPrefix,
		ttl:       cfg.TTL,
		now:       time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return store, nil
}

func (s *UpstashStore) Init(ctx context.Context, sessionID string) (BookingState, error) {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return BookingState{}, err
	}

	fresh := NewBookingState(strings.TrimSpace(sessionID), s.now())
	payload, err := json.Marshal(fresh)
	if err != nil {
		return BookingState{}, fmt.Errorf("marshal booking state: %w", err)
	}

	// NX keeps an existing state untouched.
	cmd := []any{"SET", key, string(payload), "NX"}
	if s.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(s.ttl))
	}
	if _, err := s.exec(ctx, cmd); err != nil {
		return BookingState{}, err
	}

	return s.Get(ctx, sessionID)
}

func (s *UpstashStore) Get(ctx context.Context, sessionID string) (BookingState, error) {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return BookingState{}, err
	}

	resp, err := s.exec(ctx, []any{"GET", key})
	if err != nil {
		return BookingState{}, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return BookingState{}, ErrStateNotFound
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return BookingState{}, fmt.Errorf("decode booking payload: %w", err)
	}

	var st BookingState
	if err := json.Unmarshal([]byte(encoded), &st); err != nil {
		return BookingState{}, fmt.Errorf("unmarshal booking state: %w", err)
	}
	if st.Status == "" {
		st.Status = StatusInitial
	}
	if !st.Status.Valid() {
		return BookingState{}, fmt.Errorf("invalid booking state loaded from store: status=%q", st.Status)
	}
	return st, nil
}

func (s *UpstashStore) Update(ctx context.Context, sessionID string, patch Patch) (BookingState, error) {
	cur, err := s.Get(ctx, sessionID)
	if errors.Is(err, ErrStateNotFound) {
		cur = NewBookingState(strings.TrimSpace(sessionID), s.now())
	} else if err != nil {
		return BookingState{}, err
	}

	next := patch.Apply(cur)
	next.UpdatedAt = s.now().UTC()
	if err := s.save(ctx, next); err != nil {
		return BookingState{}, err
	}
	return next, nil
}

func (s *UpstashStore) Clear(ctx context.Context, sessionID string) error {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, []any{"DEL", key})
	return err
}

func (s *UpstashStore) ClearAll(ctx context.Context) error {
	resp, err := s.exec(ctx, []any{"KEYS", s.keyPrefix + "*"})
	if err != nil {
		return err
	}

	var keys []string
	if err := json.Unmarshal(resp.Result, &keys); err != nil {
		return fmt.Errorf("decode redis keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	cmd := make([]any, 0, len(keys)+1)
	cmd = append(cmd, "DEL")
	for _, k := range keys {
		cmd = append(cmd, k)
	}
	_, err = s.exec(ctx, cmd)
	return err
}

func (s *UpstashStore) save(ctx context.Context, st BookingState) error {
	key, err := s.redisKey(st.SessionID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal booking state: %w", err)
	}

	cmd := []any{"SET", key, string(payload)}
	if s.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(s.ttl))
	}
	_, err = s.exec(ctx, cmd)
	return err
}

func (s *UpstashStore) redisKey(sessionID string) (string, error) {
	id, err := normalizeSessionID(sessionID)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s.keyPrefix) + id, nil
}

func (s *UpstashStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
