package platform

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryResult_FirstAttemptSuccess(t *testing.T) {
	calls := 0
	v, err := RetryResult(context.Background(), func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("got %q, %v", v, err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestRetryResult_TransientErrorIsRetried(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out a real backoff interval")
	}
	calls := 0
	v, err := RetryResult(context.Background(), func() (int, error) {
		calls++
		if calls == 1 {
			return 0, ErrRateLimited
		}
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Fatalf("got %d, %v", v, err)
	}
	if calls != 2 {
		t.Fatalf("expected recovery on the second attempt, got %d calls", calls)
	}
}

func TestRetryResult_ExhaustsAttemptBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out real backoff intervals")
	}
	calls := 0
	_, err := RetryResult(context.Background(), func() (int, error) {
		calls++
		return 0, ErrRateLimited
	})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected the last transient error, got %v", err)
	}
	if calls != retryAttempts {
		t.Fatalf("expected %d attempts, got %d", retryAttempts, calls)
	}
}

func TestRetryResult_QuotaRefusalIsPermanent(t *testing.T) {
	calls := 0
	_, err := RetryResult(context.Background(), func() (int, error) {
		calls++
		return 0, ErrQuotaExceeded
	})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("quota refusal must not be retried, got %d attempts", calls)
	}
}

func TestRetry_StopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Retry(ctx, func() error {
		return ErrRateLimited
	})
	if err == nil {
		t.Fatal("expected an error after cancellation")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("cancelled retry took %v", elapsed)
	}
}
