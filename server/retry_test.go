package server

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoffDelayWithinSquaredBucket(t *testing.T) {
	maxDelay := 1 * time.Hour
	for i := 0; i < 6; i++ {
		d := backoffDelay(i, maxDelay)
		lo := time.Duration(i*i) * time.Second
		hi := time.Duration((i+1)*(i+1)+1) * time.Second
		if d < lo || d >= hi {
			t.Fatalf("attempt %d: delay %s outside bucket [%s, %s)", i, d, lo, hi)
		}
	}
}

func TestBackoffDelayCapsAtMaxDelay(t *testing.T) {
	d := backoffDelay(50, 10*time.Second)
	if d != 10*time.Second {
		t.Fatalf("got %s, want capped at 10s", d)
	}
}

func TestAutomaticRetryTaskStopsAtMaxAttempts(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxRetryAttempts = 3
	opts.MaxRetryDelay = 0

	calls := 0
	boom := errors.New("boom")
	body := func(*Context) error {
		calls++
		return boom
	}

	shutdownCtx := context.Background()
	task := automaticRetryTask("test", opts, shutdownCtx, nil, body)
	err := task(&Context{Context: context.Background()})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	if calls != opts.MaxRetryAttempts {
		t.Fatalf("got %d calls, want %d", calls, opts.MaxRetryAttempts)
	}
}

func TestAutomaticRetryTaskSucceedsOnLaterAttempt(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxRetryAttempts = 5
	opts.MaxRetryDelay = 0

	calls := 0
	body := func(*Context) error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	}

	task := automaticRetryTask("test", opts, context.Background(), nil, body)
	if err := task(&Context{Context: context.Background()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("got %d calls, want 3", calls)
	}
}

func TestAutomaticRetryTaskRethrowsCancellationDuringShutdown(t *testing.T) {
	opts := DefaultOptions()
	shutdownCtx, cancel := context.WithCancel(context.Background())
	cancel()

	body := func(*Context) error { return context.Canceled }
	task := automaticRetryTask("test", opts, shutdownCtx, nil, body)
	err := task(&Context{Context: context.Background()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestAutomaticRetryTaskInvokesOnRetry(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxRetryAttempts = 3
	opts.MaxRetryDelay = 0

	var attempts []int
	body := func(*Context) error { return errors.New("boom") }
	onRetry := func(attempt int, err error) { attempts = append(attempts, attempt) }

	task := automaticRetryTask("test", opts, context.Background(), onRetry, body)
	_ = task(&Context{Context: context.Background()})

	if len(attempts) != opts.MaxRetryAttempts-1 {
		t.Fatalf("got %d onRetry calls, want %d", len(attempts), opts.MaxRetryAttempts-1)
	}
}

func TestAutomaticRetryTaskBreaksOnShutdownDuringWait(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxRetryAttempts = 10
	opts.MaxRetryDelay = time.Hour
	shutdownCtx, cancel := context.WithCancel(context.Background())

	calls := 0
	body := func(*Context) error {
		calls++
		if calls == 1 {
			cancel()
		}
		return errors.New("boom")
	}

	task := automaticRetryTask("test", opts, shutdownCtx, nil, body)
	if err := task(&Context{Context: context.Background()}); err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Fatalf("got %d calls, want 1 (loop should break during the wait)", calls)
	}
}
