// Package jobs defines the background-job data model consumed by the
// filter pipeline and the processing server.
package jobs

// Job represents a background job that can be performed. The storage
// collaborator that persists and deserializes jobs lives outside this
// module; Job is the shape the core needs to run one.
type Job interface {
	// Type returns a string identifier used to look up type-scoped filters
	// and, via activation.Activator, a handler instance.
	Type() string

	// Payload returns the job's loosely-typed arguments, as they would have
	// arrived after deserialization from storage.
	Payload() any

	// SetPayload replaces the job's arguments.
	SetPayload(any)
}

// Base provides a straightforward Job implementation to embed in concrete
// job types.
type Base struct {
	JobType string
	Data    any
}

func (b *Base) Type() string { return b.JobType }

func (b *Base) Payload() any { return b.Data }

func (b *Base) SetPayload(payload any) { b.Data = payload }
