package activation

import (
	"fmt"
	"reflect"
	"sync"

	"kiln/jobs"
)

// Handler performs one job type once its payload has been decoded into a
// typed argument value.
type Handler interface {
	// ArgsType returns the (non-pointer) struct type DecodePayload should
	// populate from the job's Payload() before Perform is called.
	ArgsType() reflect.Type
	Perform(ctx *jobs.Context, args any) (any, error)
}

// Registry maps job types to Handler implementations and, through
// PerformAsync, serves as the default InnerPerformer: activate the
// registered handler type, decode the job's payload into its declared
// argument type, and invoke it.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]reflect.Type
	activate Activator
}

// NewRegistry returns an empty Registry backed by activate.
func NewRegistry(activate Activator) *Registry {
	return &Registry{handlers: make(map[string]reflect.Type), activate: activate}
}

// Register associates jobType with the concrete type of handler. A zero
// value of that type is what activate will be asked to build for each job
// of this type.
func (r *Registry) Register(jobType string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = reflect.TypeOf(handler)
}

// PerformAsync implements pipeline.InnerPerformer: it looks up the handler
// registered for ctx.Job.Type(), activates it, decodes the job's payload
// into the handler's declared argument type, and runs it.
func (r *Registry) PerformAsync(ctx *jobs.Context) (any, error) {
	jobType := ctx.Job.Type()

	r.mu.RLock()
	handlerType, ok := r.handlers[jobType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("activation: no handler registered for job type %q", jobType)
	}

	instance, err := r.activate(handlerType)
	if err != nil {
		return nil, fmt.Errorf("activation: activate handler for job type %q: %w", jobType, err)
	}
	handler, ok := instance.(Handler)
	if !ok {
		return nil, fmt.Errorf("activation: activated instance for job type %q does not implement Handler", jobType)
	}

	argsType := handler.ArgsType()
	argsPtr := reflect.New(argsType)
	if err := DecodePayload(ctx.Job.Payload(), argsPtr.Interface()); err != nil {
		return nil, fmt.Errorf("activation: decode payload for job type %q: %w", jobType, err)
	}

	return handler.Perform(ctx, argsPtr.Elem().Interface())
}
