package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultRedisKeyPrefix = "whatsbot:memory:"

type RedisConfig struct {
	Addr     string        `envconfig:"ADDR" split_words:"true" default:"localhost:6379"`
	Password string        `envconfig:"PASSWORD" split_words:"true"`
	DB       int           `envconfig:"DB" split_words:"true" default:"0"`
	TTL      time.Duration `envconfig:"TTL" split_words:"true" default:"72h"`
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisStore keeps one JSON document per session with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: defaultRedisKeyPrefix, ttl: ttl}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + strings.TrimSpace(sessionID)
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (History, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return History{}, nil
	}
	if err != nil {
		return History{}, fmt.Errorf("load memory: %w", err)
	}

	var h History
	if err := json.Unmarshal([]byte(data), &h); err != nil {
		return History{}, fmt.Errorf("decode memory: %w", err)
	}
	return h, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, h History) error {
	b, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode memory: %w", err)
	}
	return s.client.Set(ctx, s.key(sessionID), b, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}
