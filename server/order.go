package server

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// registeredProcess bundles a user process with the adapter the server
// runs it through.
type registeredProcess struct {
	instance any
	name     string
	run      func(ctx *Context) error
}

// orderProcesses computes a startup order via Kahn's algorithm over the
// dependency graph declared by any OrderedProcess members. Processes
// that don't implement OrderedProcess are treated as dependency-free and
// scheduled first, in registration order. A circular or unsatisfiable
// dependency graph is an error.
func orderProcesses(processes []registeredProcess) ([]registeredProcess, error) {
	byName := make(map[string]registeredProcess, len(processes))
	for _, p := range processes {
		byName[p.name] = p
	}

	graph := make(map[string][]string)
	inDegree := make(map[string]int, len(processes))
	for _, p := range processes {
		inDegree[p.name] = 0
	}

	for _, p := range processes {
		ordered, ok := p.instance.(OrderedProcess)
		if !ok {
			continue
		}
		if _, err := semver.NewVersion(ordered.Version()); err != nil {
			return nil, fmt.Errorf("server: process %q has invalid version %q: %w", p.name, ordered.Version(), err)
		}
		for depName, constraintStr := range ordered.Dependencies() {
			dep, exists := byName[depName]
			if !exists {
				return nil, fmt.Errorf("server: process %q depends on unregistered process %q", p.name, depName)
			}
			c, err := semver.NewConstraint(constraintStr)
			if err != nil {
				return nil, fmt.Errorf("server: process %q has invalid version constraint %q for dependency %q: %w", p.name, constraintStr, depName, err)
			}
			depOrdered, hasVersion := dep.instance.(OrderedProcess)
			depVersionStr := "0.0.0"
			if hasVersion {
				depVersionStr = depOrdered.Version()
			}
			depVersion, err := semver.NewVersion(depVersionStr)
			if err != nil {
				return nil, fmt.Errorf("server: dependency process %q has invalid version %q: %w", depName, depVersionStr, err)
			}
			if !c.Check(depVersion) {
				return nil, fmt.Errorf("server: process %q requires version %q of %q, found %q", p.name, constraintStr, depName, depVersionStr)
			}
			graph[depName] = append(graph[depName], p.name)
			inDegree[p.name]++
		}
	}

	var queue []registeredProcess
	for _, p := range processes {
		if _, ok := p.instance.(OrderedProcess); !ok {
			queue = append(queue, p)
		}
	}
	for _, p := range processes {
		if _, ok := p.instance.(OrderedProcess); ok && inDegree[p.name] == 0 {
			queue = append(queue, p)
		}
	}

	ordered := make([]registeredProcess, 0, len(processes))
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		ordered = append(ordered, p)
		for _, dependentName := range graph[p.name] {
			inDegree[dependentName]--
			if inDegree[dependentName] == 0 {
				queue = append(queue, byName[dependentName])
			}
		}
	}

	if len(ordered) != len(processes) {
		return nil, fmt.Errorf("server: circular dependency detected among background processes")
	}

	return ordered, nil
}
