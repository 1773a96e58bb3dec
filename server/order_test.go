package server

import "testing"

type orderedStub struct {
	name    string
	version string
	deps    map[string]string
}

func (s *orderedStub) Name() string                   { return s.name }
func (s *orderedStub) Version() string                { return s.version }
func (s *orderedStub) Dependencies() map[string]string { return s.deps }
func (s *orderedStub) Execute(ctx *Context) error      { return nil }

func reg(name string, instance any) registeredProcess {
	return registeredProcess{instance: instance, name: name, run: func(*Context) error { return nil }}
}

func TestOrderProcessesRespectsDependencies(t *testing.T) {
	a := &orderedStub{name: "a", version: "1.0.0"}
	b := &orderedStub{name: "b", version: "1.0.0", deps: map[string]string{"a": ">=1.0.0"}}
	c := &orderedStub{name: "c", version: "1.0.0", deps: map[string]string{"b": ">=1.0.0"}}

	ordered, err := orderProcesses([]registeredProcess{reg("c", c), reg("a", a), reg("b", b)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := make([]string, len(ordered))
	for i, p := range ordered {
		names[i] = p.name
	}
	want := []string{"a", "b", "c"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("got order %v, want %v", names, want)
		}
	}
}

func TestOrderProcessesDetectsCycle(t *testing.T) {
	a := &orderedStub{name: "a", version: "1.0.0", deps: map[string]string{"b": ">=1.0.0"}}
	b := &orderedStub{name: "b", version: "1.0.0", deps: map[string]string{"a": ">=1.0.0"}}

	if _, err := orderProcesses([]registeredProcess{reg("a", a), reg("b", b)}); err == nil {
		t.Fatal("expected a circular dependency error")
	}
}

func TestOrderProcessesUnversionedFirst(t *testing.T) {
	plain := reg("plain", "not ordered")
	a := &orderedStub{name: "a", version: "1.0.0"}

	ordered, err := orderProcesses([]registeredProcess{reg("a", a), plain})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ordered[0].name != "plain" || ordered[1].name != "a" {
		t.Fatalf("got order %v, %v", ordered[0].name, ordered[1].name)
	}
}

func TestOrderProcessesRejectsUnsatisfiedConstraint(t *testing.T) {
	a := &orderedStub{name: "a", version: "1.0.0"}
	b := &orderedStub{name: "b", version: "1.0.0", deps: map[string]string{"a": ">=2.0.0"}}

	if _, err := orderProcesses([]registeredProcess{reg("a", a), reg("b", b)}); err == nil {
		t.Fatal("expected a version constraint error")
	}
}
