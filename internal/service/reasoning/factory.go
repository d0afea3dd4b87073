package reasoning

import (
	"fmt"

	"loom/internal/config"
)

// ProviderConstructor builds a Provider from app configuration.
type ProviderConstructor func(cfg *config.Config) (Provider, error)

// Factory creates reasoning provider instances by name.
type Factory struct {
	config       *config.Config
	constructors map[string]ProviderConstructor
}

// NewFactory creates a provider factory. Concrete providers register
// themselves via RegisterConstructor; keeping construction here avoids an
// import cycle between this package and the provider packages.
func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		config:       cfg,
		constructors: make(map[string]ProviderConstructor),
	}
}

// RegisterConstructor makes a provider available under the given name.
func (f *Factory) RegisterConstructor(name string, ctor ProviderConstructor) {
	f.constructors[name] = ctor
}

// GetProvider returns a provider instance for the given provider name.
func (f *Factory) GetProvider(providerName string) (Provider, error) {
	ctor, ok := f.constructors[providerName]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}

	provider, err := ctor(f.config)
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", providerName, err)
	}
	return provider, nil
}
