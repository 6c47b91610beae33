// Package match compares live requests with recorded ones.
//
// A matcher is a pure function comparing one aspect of two requests. Matchers
// are registered by name in a Registry and resolved once into a Set, which
// passes only if every matcher in it passes.
package match

import (
	"fmt"
	"sort"
	"sync"

	"github.com/akupila/vcr/cassette"
)

// Func reports whether live and stored are equal on the aspect it compares.
// It must not have side effects.
type Func func(live, stored *cassette.Request) bool

// DefaultNames is the matcher set used when none is configured.
var DefaultNames = []string{"method", "scheme", "host", "port", "path", "query"}

// UnknownMatcherError is returned by Resolve for a name that was never
// registered.
type UnknownMatcherError struct{ Name string }

// Error implements the error interface.
func (e *UnknownMatcherError) Error() string {
	return fmt.Sprintf("unknown matcher %q", e.Name)
}

// A Registry maps names to matchers. The zero value is not usable; use
// NewRegistry.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns a registry holding the built-in matchers.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func, len(builtins))}
	for name, fn := range builtins {
		r.funcs[name] = fn
	}
	return r
}

// Default is the registry used by Register and by sessions that do not
// configure their own.
var Default = NewRegistry()

// Register adds fn to the Default registry.
func Register(name string, fn Func) { Default.Register(name, fn) }

// Register adds fn under name, replacing any matcher already registered with
// that name. Replacing a built-in such as "body" is how a normalized
// comparison is substituted for the exact one.
//
// Register panics if name is empty or fn is nil.
func (r *Registry) Register(name string, fn Func) {
	if name == "" {
		panic("match: empty matcher name")
	}
	if fn == nil {
		panic("match: nil matcher " + name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup returns the matcher registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve looks up names and returns them as a Set in the given order. Later
// registrations do not affect the returned Set.
func (r *Registry) Resolve(names ...string) (Set, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Set{
		names: make([]string, 0, len(names)),
		funcs: make([]Func, 0, len(names)),
	}
	for _, name := range names {
		fn, ok := r.funcs[name]
		if !ok {
			return Set{}, &UnknownMatcherError{Name: name}
		}
		s.names = append(s.names, name)
		s.funcs = append(s.funcs, fn)
	}
	return s, nil
}

// A Set is an ordered, fixed list of matchers. An empty Set matches every
// request.
type Set struct {
	names []string
	funcs []Func
}

// Match reports whether every matcher in s accepts the pair. Matchers run in
// order and evaluation stops at the first failure.
func (s Set) Match(live, stored *cassette.Request) bool {
	for _, fn := range s.funcs {
		if !fn(live, stored) {
			return false
		}
	}
	return true
}

// Names returns the matcher names in evaluation order.
func (s Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}
