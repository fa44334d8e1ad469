package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/common/logger"
)

const (
	DefaultResultTTL = 24 * time.Hour
	runKeyPrefix     = "run:"
)

// RunStore keeps finished run results for later retrieval by ID.
type RunStore interface {
	Save(ctx context.Context, result *Result) error
	Get(ctx context.Context, runID string) (*Result, error)
}

// NopRunStore discards results; every lookup misses.
type NopRunStore struct{}

func (NopRunStore) Save(ctx context.Context, result *Result) error { return nil }

func (NopRunStore) Get(ctx context.Context, runID string) (*Result, error) {
	return nil, apperrors.NewRunNotFoundError(runID)
}

type RedisRunStore struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisRunStore(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisRunStore {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &RedisRunStore{client: client, ttl: ttl, logger: log}
}

func runKey(runID string) string {
	return runKeyPrefix + runID
}

func (s *RedisRunStore) Save(ctx context.Context, result *Result) error {
	if result == nil || result.RunID == "" {
		return apperrors.NewInputInvalidError("result has no run id")
	}
	data, err := json.Marshal(result)
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("encode run result: %w", err))
	}
	if err := s.client.Set(ctx, runKey(result.RunID), data, s.ttl).Err(); err != nil {
		return apperrors.NewCacheUnavailableError(err)
	}
	s.logger.Debug("run result stored", map[string]interface{}{
		"runId": result.RunID,
		"ttl":   s.ttl.String(),
	})
	return nil
}

func (s *RedisRunStore) Get(ctx context.Context, runID string) (*Result, error) {
	val, err := s.client.Get(ctx, runKey(runID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NewRunNotFoundError(runID)
	}
	if err != nil {
		return nil, apperrors.NewCacheUnavailableError(err)
	}

	var result Result
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("decode run result %s: %w", runID, err))
	}
	return &result, nil
}
