package runner

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ErrNotRegistered is returned when no runner is registered for a type.
var ErrNotRegistered = errors.New("runner type not registered")

// Info pairs a runner type with its display name and masked configuration
// schema, for the configuration UI.
type Info struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	Schema Schema `json:"configuration_schema"`
}

// Registry maps runner type identifiers to their factories. It is populated
// once during startup by explicit Register calls and read-only thereafter;
// the mutex only guards against lookups racing a late registration.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    *slog.Logger
}

// NewRegistry creates an empty runner registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		logger:    logger,
	}
}

// Register adds a factory under its own type identifier. Factories that
// report themselves disabled (their backend client cannot operate in this
// environment) are logged and skipped, so optional backends degrade to
// absence instead of failing startup. Re-registering a type overwrites the
// previous factory: last registration wins.
func (r *Registry) Register(f Factory) {
	if !f.Enabled() {
		r.logger.Debug("runner enabled but not supported, not registering",
			"type", f.Type(), "name", f.Name())
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[f.Type()] = f
	r.logger.Debug("registered runner", "type", f.Type(), "name", f.Name())
}

// Lookup returns the factory registered for the given type identifier.
func (r *Registry) Lookup(runnerType string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[runnerType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, runnerType)
	}
	return f, nil
}

// List returns information about all registered runners, sorted by type for
// a stable API response.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.factories))
	for _, f := range r.factories {
		infos = append(infos, Info{
			Type:   f.Type(),
			Name:   f.Name(),
			Schema: f.ConfigurationSchema(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Type < infos[j].Type
	})
	return infos
}
