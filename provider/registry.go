package provider

import (
	"sync"

	"github.com/alphadose/haxmap"
)

// Registry caches models by name for one backend. The provider of a model is
// built on first use from the options it was registered with.
type Registry[O any] struct {
	models *haxmap.Map[string, *registeredModel[O]]
	build  func(options ...O) Provider
}

// NewRegistry creates a registry that builds providers with build.
func NewRegistry[O any](build func(options ...O) Provider) *Registry[O] {
	return &Registry[O]{
		models: haxmap.New[string, *registeredModel[O]](),
		build:  build,
	}
}

// Model returns the model registered under name, registering it with options
// on first use. Later calls return the first registration and ignore options.
func (r *Registry[O]) Model(name string, options ...O) Model {
	m, _ := r.models.GetOrCompute(name, func() *registeredModel[O] {
		return &registeredModel[O]{name: name, options: options, build: r.build}
	})
	return m
}

// Len returns the number of registered models.
func (r *Registry[O]) Len() int {
	return int(r.models.Len())
}

type registeredModel[O any] struct {
	name    string
	options []O
	build   func(options ...O) Provider

	prov     Provider
	provOnce sync.Once
}

func (m *registeredModel[O]) Name() string {
	return m.name
}

func (m *registeredModel[O]) Provider() Provider {
	m.provOnce.Do(func() {
		m.prov = m.build(m.options...)
	})
	return m.prov
}
