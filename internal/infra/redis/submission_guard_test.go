package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"quiz-hosting-service/internal/domain"
)

func TestSubmissionGuardClaimCompleteReplay(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	guard := NewSubmissionGuard(newClient(mr), time.Minute)

	_, claimed, err := guard.Claim(ctx, "abc", "fp1")
	if err != nil || !claimed {
		t.Fatalf("expected claim, got claimed=%v err=%v", claimed, err)
	}
	if got, _ := mr.Get("quiz:submission:abc"); got != `{"fingerprint":"fp1"}` {
		t.Fatalf("expected pending record, got %q", got)
	}
	if _, _, err := guard.Claim(ctx, "abc", "fp1"); !errors.Is(err, domain.ErrSubmissionInProgress) {
		t.Fatalf("expected in-progress error, got %v", err)
	}

	want := domain.AttemptResult{Score: 2, Total: 2, Percentage: 100}
	if err := guard.Complete(ctx, "abc", "fp1", want); err != nil {
		t.Fatalf("complete: %v", err)
	}
	prior, claimed, err := guard.Claim(ctx, "abc", "fp1")
	if err != nil || claimed || prior == nil || *prior != want {
		t.Fatalf("expected replay of %+v, got prior=%v claimed=%v err=%v", want, prior, claimed, err)
	}
}

func TestSubmissionGuardRejectsDifferentFingerprint(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	guard := NewSubmissionGuard(newClient(mr), time.Minute)

	_, _, _ = guard.Claim(ctx, "abc", "fp1")
	if _, _, err := guard.Claim(ctx, "abc", "fp2"); !errors.Is(err, domain.ErrIdempotencyKeyReused) {
		t.Fatalf("expected key reuse error while pending, got %v", err)
	}

	_ = guard.Complete(ctx, "abc", "fp1", domain.AttemptResult{Score: 1, Total: 1, Percentage: 100})
	prior, claimed, err := guard.Claim(ctx, "abc", "fp2")
	if !errors.Is(err, domain.ErrIdempotencyKeyReused) || claimed || prior != nil {
		t.Fatalf("expected key reuse error after completion, got prior=%v claimed=%v err=%v", prior, claimed, err)
	}
}

func TestSubmissionGuardReleaseAndTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	guard := NewSubmissionGuard(newClient(mr), time.Minute)

	_, _, _ = guard.Claim(ctx, "abc", "fp1")
	if err := guard.Release(ctx, "abc"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists("quiz:submission:abc") {
		t.Fatalf("expected key removed after release")
	}

	_, _, _ = guard.Claim(ctx, "abc", "fp1")
	mr.FastForward(2 * time.Minute)
	if _, claimed, err := guard.Claim(ctx, "abc", "fp2"); err != nil || !claimed {
		t.Fatalf("expected claim after expiry, got claimed=%v err=%v", claimed, err)
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
