package provider

import (
	"sort"
	"strings"
)

type Registry struct {
	factories map[string]Factory
}

func NewRegistry(factories ...Factory) *Registry {
	registry := &Registry{factories: map[string]Factory{}}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		name := normalizeName(factory.Provider())
		if name == "" {
			continue
		}
		registry.factories[name] = factory
	}
	return registry
}

func (r *Registry) ProviderExists(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[normalizeName(name)]
	return ok
}

// Names lists the registered providers in alphabetical order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) NewProvider(cfg Config) (Provider, error) {
	if r == nil {
		return nil, ErrProviderNotFound
	}
	factory, ok := r.factories[normalizeName(cfg.Name)]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return factory.NewProvider(cfg)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
