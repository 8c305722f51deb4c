package sched

import (
	"slices"
	"sync"
)

// Set is an ordered collection of names, each switched on or off. The
// control surface writes it; schedulers read it when picking.
type Set struct {
	mu    sync.RWMutex
	names []string
	on    map[string]bool
}

// NewSet returns a set containing names, all enabled.
func NewSet(names ...string) *Set {
	s := &Set{on: make(map[string]bool, len(names))}
	for _, n := range names {
		s.Add(n, true)
	}
	return s
}

// Add inserts name, or updates its flag if already present.
func (s *Set) Add(name string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.on[name]; !ok {
		s.names = append(s.names, name)
	}
	s.on[name] = enabled
}

// Enable switches name on or off. It reports false for unknown names.
func (s *Set) Enable(name string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.on[name]; !ok {
		return false
	}
	s.on[name] = enabled
	return true
}

// IsEnabled reports whether name is present and switched on.
func (s *Set) IsEnabled(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.on[name]
}

// Enabled returns the enabled names in insertion order.
func (s *Set) Enabled() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.names))
	for _, n := range s.names {
		if s.on[n] {
			out = append(out, n)
		}
	}
	return out
}

// Names returns every name in insertion order.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.names)
}

// Snapshot returns a copy of the name to flag mapping.
func (s *Set) Snapshot() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := make(map[string]bool, len(s.on))
	for k, v := range s.on {
		m[k] = v
	}
	return m
}
