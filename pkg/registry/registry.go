// Package registry holds named strategy definitions, both the built-in set
// registered at startup and strategies synthesized at runtime by the
// discovery engine.
package registry

import (
	"context"
	"sync"

	"github.com/XiaoConstantine/adapt-go/pkg/core"
	"github.com/XiaoConstantine/adapt-go/pkg/errors"
	"github.com/XiaoConstantine/adapt-go/pkg/logging"
)

// Registry is an explicit strategy repository. Lifecycle is owned by the
// caller; there is no ambient global registry.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]core.StrategyDefinition
	order      []string // insertion order, preserved for deterministic listing
	logger     *logging.Logger
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		strategies: make(map[string]core.StrategyDefinition),
		logger:     logging.GetLogger(),
	}
}

// Register adds a strategy definition. Names are globally unique within a
// registry; re-registering an existing name is rejected.
func (r *Registry) Register(def core.StrategyDefinition) error {
	if def.Name == "" {
		return errors.New(errors.InvalidInput, "strategy name must not be empty")
	}
	if def.Transform == nil {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "strategy has no transform"),
			errors.Fields{"strategy": def.Name},
		)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[def.Name]; exists {
		r.logger.Warn(context.Background(), "Ignoring duplicate strategy registration: %s", def.Name)
		return errors.WithFields(
			errors.New(errors.DuplicateStrategy, "strategy already registered"),
			errors.Fields{"strategy": def.Name},
		)
	}

	r.strategies[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// MustRegister registers a definition and panics on failure. Intended for
// wiring the built-in set at startup.
func (r *Registry) MustRegister(def core.StrategyDefinition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Get returns the definition for a name.
func (r *Registry) Get(name string) (core.StrategyDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.strategies[name]
	if !ok {
		return core.StrategyDefinition{}, errors.WithFields(
			errors.New(errors.ResourceNotFound, "strategy not found"),
			errors.Fields{"strategy": name},
		)
	}
	return def, nil
}

// List returns all definitions in registration order.
func (r *Registry) List() []core.StrategyDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]core.StrategyDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.strategies[name])
	}
	return defs
}

// Names returns all registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered strategies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.strategies)
}
