package backends

import (
	"fmt"
	"os"
	"sort"

	"github.com/systmms/dotvault/internal/logging"
	"github.com/systmms/dotvault/internal/prompt"
	"github.com/systmms/dotvault/pkg/backend"
	pkgexec "github.com/systmms/dotvault/pkg/exec"
)

// EnvBackend selects the backend adapter to load.
const EnvBackend = "DOTVAULT_BACKEND"

// DefaultBackend is used when no selection is made.
const DefaultBackend = "bitwarden"

// Options carries the shared collaborators every backend needs.
type Options struct {
	Executor pkgexec.CommandExecutor
	Logger   *logging.Logger
	Prompt   prompt.Interactor
	// Location is the optional namespace hint (folder, vault, prefix)
	// scoping where managed items live.
	Location *backend.Location
}

func (o Options) withDefaults() Options {
	if o.Executor == nil {
		o.Executor = pkgexec.DefaultExecutor()
	}
	if o.Logger == nil {
		o.Logger = logging.New(false, false)
	}
	if o.Prompt == nil {
		o.Prompt = prompt.NewTerminal()
	}
	return o
}

// Factory creates a backend instance from shared options.
type Factory func(opts Options) (backend.Backend, error)

// Registry manages backend creation and registration
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a new backend registry with built-in backends
func NewRegistry() *Registry {
	registry := &Registry{
		factories: make(map[string]Factory),
	}

	registry.RegisterFactory("bitwarden", func(opts Options) (backend.Backend, error) {
		return NewBitwardenBackend(opts), nil
	})
	registry.RegisterFactory("onepassword", func(opts Options) (backend.Backend, error) {
		return NewOnePasswordBackend(opts), nil
	})
	registry.RegisterFactory("pass", func(opts Options) (backend.Backend, error) {
		return NewPassBackend(opts), nil
	})
	registry.RegisterFactory("mock", func(opts Options) (backend.Backend, error) {
		return NewMockBackend(), nil
	})

	return registry
}

// RegisterFactory registers a backend factory for a given name
func (r *Registry) RegisterFactory(name string, factory Factory) {
	r.factories[name] = factory
}

// Create creates a backend instance by name
func (r *Registry) Create(name string, opts Options) (backend.Backend, error) {
	factory, exists := r.factories[name]
	if !exists {
		return nil, fmt.Errorf("unknown backend: %s (supported: %v)", name, r.SupportedNames())
	}
	return factory(opts.withDefaults())
}

// FromEnv creates the backend selected by the DOTVAULT_BACKEND variable,
// falling back to the default. An explicit name argument overrides the
// environment.
func (r *Registry) FromEnv(name string, opts Options) (backend.Backend, error) {
	if name == "" {
		name = os.Getenv(EnvBackend)
	}
	if name == "" {
		name = DefaultBackend
	}
	return r.Create(name, opts)
}

// SupportedNames returns the registered backend names, sorted.
func (r *Registry) SupportedNames() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsSupported checks if a backend name is registered.
func (r *Registry) IsSupported(name string) bool {
	_, exists := r.factories[name]
	return exists
}
