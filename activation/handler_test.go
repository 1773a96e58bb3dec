package activation

import (
	"reflect"
	"testing"

	"kiln/jobs"
)

type greetArgs struct {
	Name string
}

type greetHandler struct{}

func (greetHandler) ArgsType() reflect.Type { return reflect.TypeOf(greetArgs{}) }

func (greetHandler) Perform(ctx *jobs.Context, args any) (any, error) {
	return "hello, " + args.(greetArgs).Name, nil
}

type testJob struct {
	jobs.Base
}

func TestRegistryPerformAsyncActivatesAndDecodes(t *testing.T) {
	reg := NewRegistry(NewReflectActivator())
	reg.Register("greet", greetHandler{})

	job := &testJob{Base: jobs.Base{JobType: "greet", Data: map[string]any{"name": "gear"}}}
	ctx := &jobs.Context{
		Job:          job,
		Cancellation: jobs.NewCancellationToken(nil, nil),
	}

	result, err := reg.PerformAsync(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "hello, gear" {
		t.Fatalf("got %v, want %q", result, "hello, gear")
	}
}

func TestRegistryPerformAsyncUnknownJobType(t *testing.T) {
	reg := NewRegistry(NewReflectActivator())
	job := &testJob{Base: jobs.Base{JobType: "unknown"}}
	ctx := &jobs.Context{Job: job, Cancellation: jobs.NewCancellationToken(nil, nil)}

	if _, err := reg.PerformAsync(ctx); err == nil {
		t.Fatal("expected an error for an unregistered job type")
	}
}
