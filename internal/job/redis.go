package job

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mattxander12/forex-trader/pkg/errors"
)

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key written by the store.
	Prefix string
	// TTL expires stored results. Zero keeps them forever.
	TTL time.Duration
}

// RedisStore persists results in Redis so they survive restarts and can be
// read by other server instances.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "forex-trader"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, errors.Wrapf(errors.ErrCodeResultStoreError, err, "redis ping %s", cfg.Addr)
	}

	return &RedisStore{client: client, prefix: cfg.Prefix, ttl: cfg.TTL}, nil
}

func (s *RedisStore) Put(ctx context.Context, jobID string, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultStoreError, "failed to encode result", err)
	}

	if err := s.client.Set(ctx, s.key(jobID), data, s.ttl).Err(); err != nil {
		return errors.Wrapf(errors.ErrCodeResultStoreError, err, "failed to store result of job %s", jobID)
	}

	return nil
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (json.RawMessage, error) {
	data, err := s.client.Get(ctx, s.key(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.Newf(errors.ErrCodeJobNotFound, "no result for job %s", jobID)
		}

		return nil, errors.Wrapf(errors.ErrCodeResultStoreError, err, "failed to read result of job %s", jobID)
	}

	return data, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(jobID string) string {
	return s.prefix + ":result:" + jobID
}
