package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/resul4e/shapeeval/internal/pkg/errors"
)

const redisPrefix = "shapeeval:runs:"

// RedisStore keeps run summaries in one sorted set per dataset, scored by
// start time in milliseconds.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis. Returns an error if the URL is invalid or
// the server does not answer a ping.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "parsing redis URL", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.CodeUnavailable, "connecting to redis", err)
	}

	return &RedisStore{
		client: client,
		prefix: redisPrefix,
		ttl:    ttl,
	}, nil
}

// Save adds a run and trims runs older than the TTL.
func (s *RedisStore) Save(ctx context.Context, run Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return errors.InternalError("encoding run", err)
	}

	key := s.prefix + run.Dataset
	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(run.StartedAt.UnixMilli()),
		Member: string(data),
	})
	if s.ttl > 0 {
		minScore := time.Now().Add(-s.ttl).UnixMilli()
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(minScore, 10))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// List returns the runs of a dataset since the given time.
func (s *RedisStore) List(ctx context.Context, dataset string, since time.Time, limit int) ([]Run, error) {
	results, err := s.client.ZRangeByScore(ctx, s.prefix+dataset, &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("loading runs: %w", err)
	}

	runs := make([]Run, 0, len(results))
	for _, member := range results {
		var run Run
		if err := json.Unmarshal([]byte(member), &run); err != nil {
			// Skip entries written by an incompatible version.
			continue
		}
		runs = append(runs, run)
	}
	return newest(runs, limit), nil
}

// Datasets returns the recorded dataset names, sorted.
func (s *RedisStore) Datasets(ctx context.Context) ([]string, error) {
	keys, err := s.client.Keys(ctx, s.prefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("listing datasets: %w", err)
	}

	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = key[len(s.prefix):]
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes every run of a dataset.
func (s *RedisStore) Delete(ctx context.Context, dataset string) error {
	if err := s.client.Del(ctx, s.prefix+dataset).Err(); err != nil {
		return fmt.Errorf("deleting runs: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
