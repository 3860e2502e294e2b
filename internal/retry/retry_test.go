package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Mokete-tech/spaan-backend/internal/apperror"
)

func fastConfig() Config {
	return Config{MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestDoRetriesGatewayErrors(t *testing.T) {
	calls := 0
	var retries []int
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		if calls < 3 {
			return apperror.New(apperror.ErrCodeGateway, "upstream unavailable")
		}
		return nil
	}, func(attempt int, err error) {
		retries = append(retries, attempt)
		if err == nil {
			t.Error("onRetry must receive the previous attempt's error")
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
	if len(retries) != 2 || retries[0] != 2 || retries[1] != 3 {
		t.Errorf("onRetry attempts = %v, want [2 3]", retries)
	}
}

func TestDoExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	calls := 0
	last := apperror.New(apperror.ErrCodeGateway, "attempt 3 failed")
	errs := []error{
		apperror.New(apperror.ErrCodeGateway, "attempt 1 failed"),
		apperror.New(apperror.ErrCodeGateway, "attempt 2 failed"),
		last,
	}
	retryCalls := 0

	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		return errs[calls-1]
	}, func(int, error) { retryCalls++ })

	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
	if retryCalls != 2 {
		t.Errorf("onRetry called %d times, want 2", retryCalls)
	}
	if !errors.Is(err, last) {
		t.Errorf("returned error = %v, want the final attempt's error", err)
	}
}

func TestDoStopsOnTerminalError(t *testing.T) {
	calls := 0
	retryCalls := 0
	terminal := apperror.New(apperror.ErrCodeValidation, "amount must be positive")

	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		return terminal
	}, func(int, error) { retryCalls++ })

	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
	if retryCalls != 0 {
		t.Errorf("onRetry called %d times, want 0", retryCalls)
	}
	if !errors.Is(err, terminal) {
		t.Errorf("returned error = %v, want the terminal error", err)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, Config{MaxAttempts: 5, BaseDelay: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return apperror.New(apperror.ErrCodeGateway, "upstream unavailable")
	}, nil)

	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("returned error = %v, want context.Canceled", err)
	}
}

func TestDoAppliesDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("MaxAttempts = %d, want %d", cfg.MaxAttempts, DefaultMaxAttempts)
	}
	if cfg.BaseDelay != DefaultBaseDelay {
		t.Errorf("BaseDelay = %v, want %v", cfg.BaseDelay, DefaultBaseDelay)
	}
}
