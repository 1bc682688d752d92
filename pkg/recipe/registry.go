// Copyright (c) 2025, The pkgsmith Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package recipe

import (
	"fmt"
	"slices"
	"sync"

	"github.com/biovault/pkgsmith/pkg/config"
	"github.com/biovault/pkgsmith/pkg/errors"
)

// Factory creates a Recipe. Recipes capture anything they need from cfg
// (such as BLAS_ROOT) at construction time.
type Factory func(cfg *config.Config) Recipe

// Global registry for recipe factories.
// Recipes register themselves via init() functions.
var (
	globalFactories = make(map[string]Factory)
	globalMu        sync.RWMutex
)

// Register registers a recipe factory globally.
// Returns an error if a recipe with the same name is already registered.
func Register(name string, factory Factory) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if _, exists := globalFactories[name]; exists {
		return fmt.Errorf("recipe %s already registered", name)
	}

	globalFactories[name] = factory
	return nil
}

// MustRegister is a convenience function that panics on registration error.
// Use this in init() functions where registration must succeed.
func MustRegister(name string, factory Factory) {
	if err := Register(name, factory); err != nil {
		panic(err)
	}
}

// GlobalNames returns all globally registered recipe names, sorted.
func GlobalNames() []string {
	globalMu.RLock()
	defer globalMu.RUnlock()

	names := make([]string, 0, len(globalFactories))
	for n := range globalFactories {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// NewFromGlobal creates a Registry with every globally registered recipe,
// each instantiated with cfg.
func NewFromGlobal(cfg *config.Config) *Registry {
	globalMu.RLock()
	defer globalMu.RUnlock()

	reg := NewRegistry()
	for name, factory := range globalFactories {
		reg.Register(name, factory(cfg))
	}
	return reg
}

// Registry holds instantiated recipes.
type Registry struct {
	recipes map[string]Recipe
	mu      sync.RWMutex
}

// NewRegistry creates a new empty Registry instance.
func NewRegistry() *Registry {
	return &Registry{
		recipes: make(map[string]Recipe),
	}
}

// Register adds a recipe under name.
func (r *Registry) Register(name string, rcp Recipe) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipes[name] = rcp
}

// Get retrieves a recipe by name.
func (r *Registry) Get(name string) (Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rcp, ok := r.recipes[name]
	if !ok {
		return nil, errors.NewWithContext(errors.ErrCodeNotFound, fmt.Sprintf("unknown recipe %q", name),
			map[string]any{"available": r.listLocked()})
	}
	return rcp, nil
}

// Select resolves names in order; an empty list selects every recipe.
func (r *Registry) Select(names []string) ([]Recipe, error) {
	if len(names) == 0 {
		names = r.List()
	}
	out := make([]Recipe, 0, len(names))
	for _, n := range names {
		rcp, err := r.Get(n)
		if err != nil {
			return nil, err
		}
		out = append(out, rcp)
	}
	return out, nil
}

// List returns registered recipe names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked()
}

func (r *Registry) listLocked() []string {
	names := make([]string, 0, len(r.recipes))
	for k := range r.recipes {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Count returns the number of registered recipes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.recipes)
}
