package runtime

import "github.com/akitasoftware/flowcore/element"

// Factory constructs a fresh, unconfigured instance of one element class.
type Factory func() element.Element

// Registry maps a class name to the factory that instantiates it,
// mirroring the teacher's cobra command registration in cmd/root.go: a
// flat name -> constructor association resolved once at startup, not a
// reflection-based lookup.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty element-class registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register associates className with factory. Re-registering a name
// overwrites the previous factory, which lets tests substitute fakes.
func (r *Registry) Register(className string, factory Factory) {
	r.factories[className] = factory
}

// New instantiates className, or returns ok=false if no factory is
// registered under that name.
func (r *Registry) New(className string) (el element.Element, ok bool) {
	f, ok := r.factories[className]
	if !ok {
		return nil, false
	}
	return f(), true
}

// ClassNames returns every registered class name, in no particular order.
func (r *Registry) ClassNames() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}
