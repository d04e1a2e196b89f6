package worker

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/ppiankov/credence/internal/model"
)

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	original := retrySleep
	retrySleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	t.Cleanup(func() { retrySleep = original })
	return &delays
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	delays := stubSleep(t)

	calls := 0
	result, err := Retry(context.Background(), 3, 100*time.Millisecond, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &model.CollaboratorError{Service: "search", StatusCode: http.StatusServiceUnavailable}
		}
		return "ok", nil
	})

	if err != nil || result != "ok" {
		t.Fatalf("expected ok, got %q / %v", result, err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if len(*delays) != 2 || (*delays)[0] != 100*time.Millisecond || (*delays)[1] != 200*time.Millisecond {
		t.Errorf("expected exponential backoff 100ms, 200ms, got %v", *delays)
	}
}

func TestRetry_PermanentErrorStops(t *testing.T) {
	stubSleep(t)

	calls := 0
	_, err := Retry(context.Background(), 5, time.Millisecond, func(ctx context.Context) (int, error) {
		calls++
		return 0, &model.CollaboratorError{Service: "llm", StatusCode: http.StatusUnauthorized}
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected no retries for 401, got %d calls", calls)
	}
}

func TestRetry_GivesUp(t *testing.T) {
	stubSleep(t)

	calls := 0
	_, err := Retry(context.Background(), 3, time.Millisecond, func(ctx context.Context) (int, error) {
		calls++
		return 0, &model.CollaboratorError{Service: "llm", StatusCode: http.StatusTooManyRequests}
	})

	var collabErr *model.CollaboratorError
	if !errors.As(err, &collabErr) {
		t.Fatalf("expected last error returned, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestRetry_CancelledDuringBackoff(t *testing.T) {
	stubSleep(t)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, 5, time.Millisecond, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, &model.CollaboratorError{Service: "llm", StatusCode: http.StatusBadGateway}
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected retries to stop after cancellation, got %d calls", calls)
	}
}
