package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFactory struct {
	name string
	cfg  Config
}

func (f *stubFactory) Provider() string { return f.name }

func (f *stubFactory) NewProvider(cfg Config) (Provider, error) {
	f.cfg = cfg
	if _, ok := cfg.String("api_key"); !ok {
		return nil, ErrInvalidConfig
	}
	return nil, nil
}

func TestRegistryNormalizesProviderNames(t *testing.T) {
	local := &stubFactory{name: " Local "}
	registry := NewRegistry(local, nil, &stubFactory{name: "  "})

	assert.True(t, registry.ProviderExists("LOCAL"))
	assert.False(t, registry.ProviderExists("stripe"))
	assert.Equal(t, []string{"local"}, registry.Names())

	_, err := registry.NewProvider(Config{Name: "local", Options: map[string]any{"api_key": "k"}})
	require.NoError(t, err)
	assert.Equal(t, "local", local.cfg.Name)
}

func TestRegistryUnknownProvider(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.NewProvider(Config{Name: "adyen"})
	assert.ErrorIs(t, err, ErrProviderNotFound)

	var nilRegistry *Registry
	_, err = nilRegistry.NewProvider(Config{Name: "local"})
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestRegistryPassesConfigErrors(t *testing.T) {
	registry := NewRegistry(&stubFactory{name: "local"})

	_, err := registry.NewProvider(Config{Name: "local", Options: map[string]any{"api_key": 42}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
