package server

import (
	"fmt"
	"time"
)

// Options are the ProcessingServer's tunables: the three shutdown-stage
// timeouts, the crash-restart delay, and the retry envelope's bounds.
type Options struct {
	StopTimeout       time.Duration
	ShutdownTimeout   time.Duration
	LastChanceTimeout time.Duration
	RestartDelay      time.Duration

	MaxRetryAttempts int
	MaxRetryDelay    time.Duration
}

// DefaultOptions returns a reasonable starting point for a demonstration
// server.
func DefaultOptions() Options {
	return Options{
		StopTimeout:       15 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		LastChanceTimeout: 5 * time.Second,
		RestartDelay:      10 * time.Second,
		MaxRetryAttempts:  10,
		MaxRetryDelay:     60 * time.Second,
	}
}

// Validate enforces "stopping no later than stopped no later than
// shutdown" by construction, since the server uses three independent
// (non-nested) cancellation contexts rather than context parentage to
// get that ordering.
func (o Options) Validate() error {
	switch {
	case o.StopTimeout < 0:
		return fmt.Errorf("server: StopTimeout must be >= 0")
	case o.ShutdownTimeout < o.StopTimeout:
		return fmt.Errorf("server: ShutdownTimeout (%s) must be >= StopTimeout (%s)", o.ShutdownTimeout, o.StopTimeout)
	case o.LastChanceTimeout < 0:
		return fmt.Errorf("server: LastChanceTimeout must be >= 0")
	case o.RestartDelay < 0:
		return fmt.Errorf("server: RestartDelay must be >= 0")
	case o.MaxRetryAttempts < 1:
		return fmt.Errorf("server: MaxRetryAttempts must be >= 1")
	case o.MaxRetryDelay < 0:
		return fmt.Errorf("server: MaxRetryDelay must be >= 0")
	}
	return nil
}
