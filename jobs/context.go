package jobs

import "context"

// StorageConnection is the minimal persistence handle the core consumes.
// Its concrete implementation (a database connection, a Redis client, ...)
// lives entirely outside this module.
type StorageConnection interface {
	Close() error
}

// CancellationToken carries the two cancellation sub-signals named in the
// core's data model: a job-level signal the caller controls, and a
// process-wide shutdown signal the ProcessingServer controls.
type CancellationToken struct {
	Job      context.Context
	Shutdown context.Context
}

// NewCancellationToken builds a token from the two underlying contexts,
// defaulting either to context.Background if nil.
func NewCancellationToken(job, shutdown context.Context) CancellationToken {
	if job == nil {
		job = context.Background()
	}
	if shutdown == nil {
		shutdown = context.Background()
	}
	return CancellationToken{Job: job, Shutdown: shutdown}
}

// ThrowIfCancellationRequested returns the first of the two signals'
// errors that has fired, or nil if neither has.
func (t CancellationToken) ThrowIfCancellationRequested() error {
	select {
	case <-t.Job.Done():
		return t.Job.Err()
	default:
	}
	select {
	case <-t.Shutdown.Done():
		return t.Shutdown.Err()
	default:
	}
	return nil
}

// ShutdownRequested reports whether the process-wide shutdown sub-signal
// has fired, independent of the job-level one.
func (t CancellationToken) ShutdownRequested() bool {
	select {
	case <-t.Shutdown.Done():
		return true
	default:
		return false
	}
}

// Context is the execution request passed through the pipeline: a
// reference to the job, a storage connection, a background-job
// identifier, and the combined cancellation token. Owned exclusively by
// one pipeline invocation; the pipeline never mutates it after
// PerformAsync returns.
type Context struct {
	Job             Job
	Connection      StorageConnection
	BackgroundJobID string
	Cancellation    CancellationToken
}
