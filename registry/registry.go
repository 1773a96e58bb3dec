// Package registry provides a concrete pipeline.FilterProvider: a
// mutex-guarded table of globally registered filters plus filters scoped
// to a specific job type.
package registry

import (
	"sync"

	"kiln/jobs"
	"kiln/pipeline"
)

// FilterRegistry implements pipeline.FilterProvider. GetFilters
// concatenates global filters (in registration order) with the filters
// registered for that job's type (in registration order), preserving the
// "provider-given order is outer→inner" contract.
type FilterRegistry struct {
	mu       sync.RWMutex
	global   []pipeline.FilterInfo
	byType   map[string][]pipeline.FilterInfo
	nextSlot int
}

// New returns an empty FilterRegistry.
func New() *FilterRegistry {
	return &FilterRegistry{byType: make(map[string][]pipeline.FilterInfo)}
}

// RegisterGlobal adds a filter that applies to every job type.
func (r *FilterRegistry) RegisterGlobal(instance any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = append(r.global, pipeline.FilterInfo{Instance: instance, Scope: "global", Order: r.nextSlot})
	r.nextSlot++
}

// RegisterForType adds a filter that applies only to jobs of the given
// type.
func (r *FilterRegistry) RegisterForType(jobType string, instance any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[jobType] = append(r.byType[jobType], pipeline.FilterInfo{Instance: instance, Scope: jobType, Order: r.nextSlot})
	r.nextSlot++
}

// GetFilters implements pipeline.FilterProvider.
func (r *FilterRegistry) GetFilters(job jobs.Job) []pipeline.FilterInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scoped := r.byType[job.Type()]
	filters := make([]pipeline.FilterInfo, 0, len(r.global)+len(scoped))
	filters = append(filters, r.global...)
	filters = append(filters, scoped...)
	return filters
}
