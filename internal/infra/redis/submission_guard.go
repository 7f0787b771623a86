package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"quiz-hosting-service/internal/domain"
)

// submissionRecord is the value stored under a key. Result is nil while the
// claiming request is still scoring.
type submissionRecord struct {
	Fingerprint string                `json:"fingerprint"`
	Result      *domain.AttemptResult `json:"result,omitempty"`
}

// SubmissionGuard is a Redis implementation of app.SubmissionGuard.
// Keys: SET quiz:submission:{key} {fingerprint} NX EX ttl, then overwritten with the result.
// Sharing Redis lets every instance see the same keys.
type SubmissionGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSubmissionGuard(client *redis.Client, ttl time.Duration) *SubmissionGuard {
	return &SubmissionGuard{client: client, ttl: ttl}
}

func (g *SubmissionGuard) Claim(ctx context.Context, key, fingerprint string) (*domain.AttemptResult, bool, error) {
	pending, err := json.Marshal(submissionRecord{Fingerprint: fingerprint})
	if err != nil {
		return nil, false, err
	}
	claimed, err := g.client.SetNX(ctx, g.key(key), pending, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("claim submission key: %w", err)
	}
	if claimed {
		return nil, true, nil
	}

	raw, err := g.client.Get(ctx, g.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		// Released or expired between SETNX and GET; try once more.
		claimed, err = g.client.SetNX(ctx, g.key(key), pending, g.ttl).Result()
		if err != nil {
			return nil, false, fmt.Errorf("claim submission key: %w", err)
		}
		if claimed {
			return nil, true, nil
		}
		return nil, false, domain.ErrSubmissionInProgress
	}
	if err != nil {
		return nil, false, fmt.Errorf("read submission key: %w", err)
	}

	var record submissionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, false, fmt.Errorf("decode submission record: %w", err)
	}
	if record.Fingerprint != fingerprint {
		return nil, false, domain.ErrIdempotencyKeyReused
	}
	if record.Result == nil {
		return nil, false, domain.ErrSubmissionInProgress
	}
	return record.Result, false, nil
}

func (g *SubmissionGuard) Complete(ctx context.Context, key, fingerprint string, result domain.AttemptResult) error {
	data, err := json.Marshal(submissionRecord{Fingerprint: fingerprint, Result: &result})
	if err != nil {
		return err
	}
	return g.client.Set(ctx, g.key(key), data, g.ttl).Err()
}

func (g *SubmissionGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, g.key(key)).Err()
}

func (g *SubmissionGuard) key(key string) string {
	return "quiz:submission:" + key
}
