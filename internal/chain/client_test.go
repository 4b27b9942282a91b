package chain

import (
	"context"
	"errors"
	"testing"
	"time"
)

func retryClient(maxRetries int, backoff time.Duration) *Client {
	return &Client{maxRetries: maxRetries, retryBackoff: backoff}
}

func TestWithRetryEventualSuccess(t *testing.T) {
	client := retryClient(3, time.Millisecond)

	attempts := 0
	err := client.withRetry(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("got %d attempts, want 3", attempts)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	client := retryClient(2, 10*time.Millisecond)

	wantErr := errors.New("connection reset")
	attempts := 0
	start := time.Now()
	err := client.withRetry(context.Background(), func(context.Context) error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want the last attempt's error", err)
	}
	if attempts != 3 {
		t.Fatalf("got %d attempts, want initial call plus 2 retries", attempts)
	}

	// Backoff doubles between attempts: at least 10ms + 20ms elapsed.
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("retries finished in %v, want at least 30ms of backoff", elapsed)
	}
}

func TestWithRetryDisabledByDefault(t *testing.T) {
	client := retryClient(0, time.Millisecond)

	attempts := 0
	err := client.withRetry(context.Background(), func(context.Context) error {
		attempts++
		return errors.New("connection reset")
	})
	if err == nil {
		t.Fatalf("expected the error to surface")
	}
	if attempts != 1 {
		t.Fatalf("got %d attempts, want 1 without retry configured", attempts)
	}
}

func TestWithRetryCancelledDuringBackoff(t *testing.T) {
	client := retryClient(5, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := client.withRetry(ctx, func(context.Context) error {
		attempts++
		cancel()
		return errors.New("connection reset")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Fatalf("got %d attempts, want 1 before cancellation", attempts)
	}
}

func TestWithRetryDoesNotRetryReverts(t *testing.T) {
	client := retryClient(3, time.Millisecond)

	revert := errors.New("execution reverted: SPL")
	attempts := 0
	err := client.withRetry(context.Background(), func(context.Context) error {
		attempts++
		return revert
	})
	if !errors.Is(err, revert) {
		t.Fatalf("error = %v, want the revert to surface", err)
	}
	if attempts != 1 {
		t.Fatalf("got %d attempts, want 1 for a deterministic revert", attempts)
	}
}
