package core

// registry.go provides the tag-indexed registries behind the importer and
// dialect selectors. Registries are populated at init time and read-only
// afterwards; the mutex exists for test-time Clear/Register cycles.

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps a string tag to a registered value. Used for importer
// constructors and dialect renderers.
type Registry[T any] struct {
	name string
	mu   sync.RWMutex
	byTag map[string]T
}

// NewRegistry creates an empty registry. The name appears in panic messages
// so a duplicate registration names the registry it hit.
func NewRegistry[T any](name string) *Registry[T] {
	return &Registry[T]{
		name:  name,
		byTag: make(map[string]T),
	}
}

// Register adds a value under tag.
// Panics if the tag is already registered: variants are wired at process
// start and a duplicate is a programming error, not a runtime condition.
func (r *Registry[T]) Register(tag string, value T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byTag[tag]; exists {
		panic(fmt.Sprintf("%s already registered: %s", r.name, tag))
	}
	r.byTag[tag] = value
}

// Lookup returns the value registered under tag.
// Returns false if not found.
func (r *Registry[T]) Lookup(tag string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.byTag[tag]
	return v, ok
}

// Tags returns all registered tags, sorted for consistent ordering.
func (r *Registry[T]) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.byTag))
	for tag := range r.byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Len returns the number of registered tags.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byTag)
}

// Clear removes all registered values.
// Primarily useful for testing.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTag = make(map[string]T)
}
