package registry

import (
	"testing"

	"kiln/jobs"
)

type typedJob struct {
	jobs.Base
}

func newTypedJob(t string) *typedJob {
	j := &typedJob{}
	j.JobType = t
	return j
}

func TestGetFiltersOrdersGlobalBeforeScoped(t *testing.T) {
	r := New()
	r.RegisterGlobal("g1")
	r.RegisterForType("email", "e1")
	r.RegisterGlobal("g2")
	r.RegisterForType("sms", "s1")

	filters := r.GetFilters(newTypedJob("email"))
	want := []string{"g1", "g2", "e1"}
	if len(filters) != len(want) {
		t.Fatalf("got %d filters, want %d", len(filters), len(want))
	}
	for i, f := range filters {
		if f.Instance != want[i] {
			t.Fatalf("filter %d: got %v, want %v", i, f.Instance, want[i])
		}
	}
}

func TestGetFiltersUnknownTypeGetsGlobalOnly(t *testing.T) {
	r := New()
	r.RegisterGlobal("g1")
	r.RegisterForType("email", "e1")

	filters := r.GetFilters(newTypedJob("sms"))
	if len(filters) != 1 || filters[0].Instance != "g1" {
		t.Fatalf("got %v, want only g1", filters)
	}
}
