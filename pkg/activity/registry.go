package activity

import (
	"fmt"
	"sync"
)

// Registry indexes activity type handlers by their numeric code. The set is
// closed: it is built once from an explicit registration table and treated
// as immutable thereafter.
type Registry struct {
	handlers map[int]Handler
}

// NewRegistry builds a registry from the given handlers. Two handlers
// claiming the same code is a fatal configuration error, reported here at
// build time rather than at first use.
func NewRegistry(handlers ...Handler) (*Registry, error) {
	indexed := make(map[int]Handler, len(handlers))

	for _, h := range handlers {
		if existing, ok := indexed[h.Type()]; ok {
			return nil, fmt.Errorf("activity type code %d registered twice (%s and %s)",
				h.Type(), existing.Key(), h.Key())
		}

		indexed[h.Type()] = h
	}

	return &Registry{handlers: indexed}, nil
}

// From returns the handler registered under the given code.
func (r *Registry) From(code int) (Handler, error) {
	h, ok := r.handlers[code]
	if !ok {
		return nil, fmt.Errorf("activity type %d is not defined: %w", code, ErrUnknownActivityType)
	}

	return h, nil
}

// Handlers returns all registered handlers in unspecified order.
func (r *Registry) Handlers() []Handler {
	out := make([]Handler, 0, len(r.handlers))
	for _, h := range r.handlers {
		out = append(out, h)
	}

	return out
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry holding the built-in activity
// types. Built lazily exactly once; safe to race since every caller computes
// the identical table. A duplicate code in the built-in table is a
// programming error and panics.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		r, err := NewRegistry(builtinHandlers()...)
		if err != nil {
			panic(err)
		}

		defaultRegistry = r
	})

	return defaultRegistry
}

// From resolves a code against the default registry.
func From(code int) (Handler, error) {
	return Default().From(code)
}
