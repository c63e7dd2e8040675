package source

import (
	"fmt"

	"github.com/andybalholm/cascadia"
)

// Registry maps source keys to their extraction strategies and metadata.
// It is populated once at startup and read-only afterwards, so lookups
// need no locking.
type Registry struct {
	sources map[string]*Source
	order   []string // registration order, for stable listings
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]*Source)}
}

// Register adds a source. Keys must be unique and any configured wait
// selector must parse; a bad selector here would otherwise surface as a
// confusing timeout on every scrape.
func (r *Registry) Register(src *Source) error {
	if src.Key == "" {
		return fmt.Errorf("source key is empty")
	}
	if _, dup := r.sources[src.Key]; dup {
		return fmt.Errorf("duplicate source key %q", src.Key)
	}
	if src.Strategy == nil {
		return fmt.Errorf("source %q has no strategy", src.Key)
	}
	if src.WaitSelector != "" {
		if _, err := cascadia.Parse(src.WaitSelector); err != nil {
			return fmt.Errorf("source %q: invalid wait selector %q: %w", src.Key, src.WaitSelector, err)
		}
	}

	r.sources[src.Key] = src
	r.order = append(r.order, src.Key)
	return nil
}

// MustRegister is Register for startup wiring, panicking on error.
func (r *Registry) MustRegister(src *Source) {
	if err := r.Register(src); err != nil {
		panic(err)
	}
}

// Get looks up a source by key.
func (r *Registry) Get(key string) (*Source, bool) {
	src, ok := r.sources[key]
	return src, ok
}

// Keys returns all source keys in registration order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// All returns all sources in registration order.
func (r *Registry) All() []*Source {
	out := make([]*Source, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.sources[k])
	}
	return out
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	return len(r.sources)
}
