package registry

import (
	"fmt"

	"go.uber.org/zap"
)

// Provider is one ordered unit of type registration. Providers replace
// scattered self-registration: a process lists its providers once at
// startup, and registration failures surface synchronously.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string
	// RegisterTypes registers the provider's definitions and constraints.
	RegisterTypes(r *Registry) error
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc struct {
	ProviderName string
	Register     func(r *Registry) error
}

func (p ProviderFunc) Name() string                    { return p.ProviderName }
func (p ProviderFunc) RegisterTypes(r *Registry) error { return p.Register(r) }

// Load applies the providers to the registry in order and freezes it.
// Any provider error aborts the load with the provider named.
func Load(r *Registry, providers ...Provider) error {
	for _, p := range providers {
		if err := p.RegisterTypes(r); err != nil {
			return fmt.Errorf("provider %s: %w", p.Name(), err)
		}
		r.log.Debug("provider registered", zap.String("provider", p.Name()))
	}
	return r.Freeze()
}
