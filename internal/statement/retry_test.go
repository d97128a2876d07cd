package statement

import (
	"context"
	"errors"
	"testing"
	"time"
)

var fastRetryConfig = RetryConfig{
	MaxRetries:     2,
	InitialDelay:   time.Millisecond,
	MaxDelay:       5 * time.Millisecond,
	BackoffFactor:  2.0,
	JitterFraction: 0.2,
}

func TestWithRetry_SucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	got, err := WithRetry(context.Background(), fastRetryConfig, func(ctx context.Context) (string, error) {
		attempts++
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("got (%q, %v)", got, err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestWithRetry_RetriesRetryableError(t *testing.T) {
	attempts := 0
	got, err := WithRetry(context.Background(), fastRetryConfig, func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, &PipelineError{Code: ErrCodeLLMUnavailable, Message: "transient", Retryable: true}
		}
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("got (%d, %v)", got, err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestWithRetry_StopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), fastRetryConfig, func(ctx context.Context) (int, error) {
		attempts++
		return 0, &PipelineError{Code: ErrCodeUnparsableResponse, Message: "bad output"}
	})
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
	pe, ok := AsPipelineError(err)
	if !ok || pe.Code != ErrCodeUnparsableResponse {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWithRetry_PlainErrorsAreRetried(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), fastRetryConfig, func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("connection reset")
	})
	if attempts != fastRetryConfig.MaxRetries+1 {
		t.Fatalf("attempts = %d, want %d", attempts, fastRetryConfig.MaxRetries+1)
	}
	if err == nil || err.Error() != "connection reset" {
		t.Fatalf("expected last error back, got %v", err)
	}
}

func TestWithRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := fastRetryConfig
	cfg.InitialDelay = time.Hour

	_, err := WithRetry(ctx, cfg, func(ctx context.Context) (int, error) {
		return 0, &PipelineError{Code: ErrCodeLLMUnavailable, Retryable: true}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
