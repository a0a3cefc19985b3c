package strategies

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownStrategy is returned when a strategy name is not registered.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Registry maps strategy names to their constructors.
type Registry struct {
	constructors map[string]Constructor
	mu           sync.RWMutex
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// NewDefaultRegistry creates a registry holding every built-in strategy.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(SMACrossName, NewSMACross)
	r.Register(RSIName, NewRSIReversion)
	return r
}

// Register adds a strategy constructor.
// If a strategy with the same name already exists, it will be replaced.
func (r *Registry) Register(name string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.constructors[normalize(name)] = c
}

// Has returns true if a strategy with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.constructors[normalize(name)]
	return exists
}

// New builds the named strategy with params.
func (r *Registry) New(name string, params map[string]float64) (SingleAssetStrategy, error) {
	r.mu.RLock()
	c, ok := r.constructors[normalize(name)]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	s, err := c(params)
	if err != nil {
		return nil, fmt.Errorf("failed to build strategy %s: %w", name, err)
	}
	return s, nil
}

// Names returns all registered strategy names in alphabetical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
