package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func quickConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestWithRetryZeroConfigRunsOnce(t *testing.T) {
	calls := 0
	wantErr := errors.New("boom")
	err := WithRetry(context.Background(), Config{}, func() error {
		calls++
		return wantErr
	})
	if calls != 1 {
		t.Errorf("expected exactly one call, got %d", calls)
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want the function's error unwrapped", err)
	}
}

func TestWithRetryRetryableStatus(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), quickConfig(), func() error {
		calls++
		if calls < 3 {
			return NewHTTPError(http.StatusServiceUnavailable, "503 Service Unavailable", "")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryNonRetryableStatus(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), quickConfig(), func() error {
		calls++
		return NewHTTPError(http.StatusNotFound, "404 Not Found", "")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("404 must not retry, got %d calls", calls)
	}
}

func TestWithRetryWrappedStatusError(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), quickConfig(), func() error {
		calls++
		return fmt.Errorf("fetching section: %w", NewHTTPError(http.StatusTooManyRequests, "429", ""))
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != quickConfig().MaxAttempts {
		t.Errorf("wrapped 429 should retry to the cap, got %d calls", calls)
	}

	var httpErr HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("final error should unwrap to the HTTP error, got %v", err)
	}
}

func TestWithRetryContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := quickConfig()
	cfg.InitialBackoff = time.Minute

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- WithRetry(ctx, cfg, func() error {
			calls++
			return errors.New("transient")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
	if calls != 1 {
		t.Errorf("expected a single call before cancellation, got %d", calls)
	}
}

func TestCalculateBackoffCapped(t *testing.T) {
	cfg := Config{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, Multiplier: 2.0}
	if got := calculateBackoff(0, cfg); got != time.Second {
		t.Errorf("attempt 0: got %v", got)
	}
	if got := calculateBackoff(1, cfg); got != 2*time.Second {
		t.Errorf("attempt 1: got %v", got)
	}
	if got := calculateBackoff(5, cfg); got != 3*time.Second {
		t.Errorf("attempt 5 should cap at max, got %v", got)
	}
}
