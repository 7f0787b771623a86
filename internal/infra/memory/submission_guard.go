package memory

import (
	"context"
	"sync"
	"time"

	"quiz-hosting-service/internal/domain"
)

// SubmissionGuard is an in-memory implementation of app.SubmissionGuard.
type SubmissionGuard struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.Mutex
	entries map[string]guardEntry
}

type guardEntry struct {
	fingerprint string
	result      *domain.AttemptResult // nil while the submission is in flight
	expiresAt   time.Time
}

func NewSubmissionGuard(ttl time.Duration) *SubmissionGuard {
	return &SubmissionGuard{
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[string]guardEntry),
	}
}

func (g *SubmissionGuard) Claim(_ context.Context, key, fingerprint string) (*domain.AttemptResult, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	if entry, ok := g.entries[key]; ok && (g.ttl <= 0 || entry.expiresAt.After(now)) {
		if entry.fingerprint != fingerprint {
			return nil, false, domain.ErrIdempotencyKeyReused
		}
		if entry.result == nil {
			return nil, false, domain.ErrSubmissionInProgress
		}
		result := *entry.result
		return &result, false, nil
	}
	g.entries[key] = guardEntry{fingerprint: fingerprint, expiresAt: now.Add(g.ttl)}
	return nil, true, nil
}

func (g *SubmissionGuard) Complete(_ context.Context, key, fingerprint string, result domain.AttemptResult) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[key] = guardEntry{fingerprint: fingerprint, result: &result, expiresAt: g.clock().Add(g.ttl)}
	return nil
}

func (g *SubmissionGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
	return nil
}
