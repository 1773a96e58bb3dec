package events

import "context"

// Lifecycle event topics published by a ProcessingServer.
const (
	TopicProcessStarted  = "process.started"
	TopicProcessRetrying = "process.retrying"
	TopicServerStopping  = "server.stopping"
	TopicServerShutdown  = "server.shutdown"
)

// ProcessStartedEvent is published once a background process's goroutine
// has been launched.
type ProcessStartedEvent struct {
	Process string
}

func (e ProcessStartedEvent) EventType() string { return TopicProcessStarted }

// ProcessRetryingEvent is published each time AutomaticRetryTask schedules
// another attempt.
type ProcessRetryingEvent struct {
	Process string
	Attempt int
	Err     error
}

func (e ProcessRetryingEvent) EventType() string { return TopicProcessRetrying }

// ServerStoppingEvent is published when SendStop is first called.
type ServerStoppingEvent struct{}

func (e ServerStoppingEvent) EventType() string { return TopicServerStopping }

// ServerShutdownEvent is published once the shutdown signal has fired.
type ServerShutdownEvent struct{}

func (e ServerShutdownEvent) EventType() string { return TopicServerShutdown }

// PublishProcessStarted publishes a ProcessStartedEvent for process on bus.
func PublishProcessStarted(ctx context.Context, bus Bus, process string) {
	bus.Publish(ctx, TopicProcessStarted, ProcessStartedEvent{Process: process})
}

// PublishProcessRetrying publishes a ProcessRetryingEvent for process on bus.
func PublishProcessRetrying(ctx context.Context, bus Bus, process string, attempt int, err error) {
	bus.Publish(ctx, TopicProcessRetrying, ProcessRetryingEvent{Process: process, Attempt: attempt, Err: err})
}

// PublishServerStopping publishes a ServerStoppingEvent on bus.
func PublishServerStopping(ctx context.Context, bus Bus) {
	bus.Publish(ctx, TopicServerStopping, ServerStoppingEvent{})
}

// PublishServerShutdown publishes a ServerShutdownEvent on bus.
func PublishServerShutdown(ctx context.Context, bus Bus) {
	bus.Publish(ctx, TopicServerShutdown, ServerShutdownEvent{})
}
