package registry

import (
	"fmt"
	"slices"

	berr "github.com/nullptr-deref/dbus-sharing/contract/errors"
)

// Endpoint is one registered file-handling program.
type Endpoint struct {
	Name       string
	Executable string
	Formats    []string
}

// Dispatchable reports whether the endpoint declared a program to run.
func (e Endpoint) Dispatchable() bool { return e.Executable != "" }

func (e Endpoint) clone() Endpoint {
	e.Formats = slices.Clone(e.Formats)
	return e
}

// Registry maps endpoint names to endpoints. It is immutable once returned by the loader
// and safe for concurrent reads; callers only ever see copies of its endpoints.
type Registry struct {
	order     []string
	endpoints map[string]Endpoint
}

func newRegistry() *Registry {
	return &Registry{endpoints: make(map[string]Endpoint)}
}

// Names returns all endpoint names in first-declaration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Get returns a copy of the named endpoint.
func (r *Registry) Get(name string) (Endpoint, error) {
	e, ok := r.endpoints[name]
	if !ok {
		return Endpoint{}, fmt.Errorf("get endpoint %q: %w", name, berr.ErrUnknownEndpoint)
	}

	return e.clone(), nil
}

// Len returns the number of registered endpoints.
func (r *Registry) Len() int { return len(r.order) }

// declare installs a fresh endpoint, dropping whatever a previous section of the same name set.
func (r *Registry) declare(name string) {
	if _, exists := r.endpoints[name]; !exists {
		r.order = append(r.order, name)
	}

	r.endpoints[name] = Endpoint{Name: name, Formats: []string{}}
}

func (r *Registry) update(name string, fn func(*Endpoint)) {
	e := r.endpoints[name]
	fn(&e)
	r.endpoints[name] = e
}
