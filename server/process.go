package server

import (
	"context"
	"fmt"
)

// Context is passed to a BackgroundProcess body. It is canceled when the
// server's "stopped" signal fires: cooperative cancellation has been
// escalated and the process should no longer block.
type Context struct {
	context.Context
}

// BackgroundProcess is the synchronous process body shape.
type BackgroundProcess interface {
	Name() string
	Execute(ctx *Context) error
}

// AsyncBackgroundProcess is the asynchronous process body shape. A
// process implementing both has ExecuteAsync preferred; the wrappers
// refuse to call Execute when an async body is present.
type AsyncBackgroundProcess interface {
	Name() string
	ExecuteAsync(ctx *Context) error
}

// OrderedProcess is the supplemental dependency-ordering hook (see
// orderProcesses). A process that doesn't implement it is treated as
// dependency-free and scheduled first, in registration order.
type OrderedProcess interface {
	Name() string
	Version() string
	Dependencies() map[string]string
}

// adaptProcess builds the unified process body for a registered process,
// preferring the async shape when both are implemented.
func adaptProcess(p any) (name string, run func(ctx *Context) error, err error) {
	if async, ok := p.(AsyncBackgroundProcess); ok {
		return async.Name(), async.ExecuteAsync, nil
	}
	if sync, ok := p.(BackgroundProcess); ok {
		return sync.Name(), sync.Execute, nil
	}
	return "", nil, fmt.Errorf("server: process %T implements neither BackgroundProcess nor AsyncBackgroundProcess", p)
}
