package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/callscope/callaudit/pkg/provider/llm"
	"github.com/callscope/callaudit/pkg/provider/stt"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	llm map[string]func(ProviderEntry) (llm.Provider, error)
	stt map[string]func(ProviderEntry) (stt.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		llm: make(map[string]func(ProviderEntry) (llm.Provider, error)),
		stt: make(map[string]func(ProviderEntry) (stt.Provider, error)),
	}
}

// RegisterLLM registers an LLM provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterLLM(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// RegisterSTT registers an STT provider factory under name.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// CreateLLM constructs the LLM provider configured in entry.
// Returns [ErrProviderNotRegistered] if entry.Name has no registered factory.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.llm[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm provider %q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateSTT constructs the STT provider configured in entry.
// Returns [ErrProviderNotRegistered] if entry.Name has no registered factory.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Provider, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt provider %q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateLLMChain constructs the primary provider and every fallback in the
// chain, in declaration order. The caller wires them into a fallback group.
func (r *Registry) CreateLLMChain(chain ProviderChain) ([]llm.Provider, error) {
	providers := make([]llm.Provider, 0, 1+len(chain.Fallbacks))
	p, err := r.CreateLLM(chain.ProviderEntry)
	if err != nil {
		return nil, err
	}
	providers = append(providers, p)
	for _, fb := range chain.Fallbacks {
		p, err := r.CreateLLM(fb)
		if err != nil {
			return nil, fmt.Errorf("config: llm fallback %q: %w", fb.Name, err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// CreateSTTChain constructs the primary provider and every fallback in the
// chain, in declaration order.
func (r *Registry) CreateSTTChain(chain ProviderChain) ([]stt.Provider, error) {
	providers := make([]stt.Provider, 0, 1+len(chain.Fallbacks))
	p, err := r.CreateSTT(chain.ProviderEntry)
	if err != nil {
		return nil, err
	}
	providers = append(providers, p)
	for _, fb := range chain.Fallbacks {
		p, err := r.CreateSTT(fb)
		if err != nil {
			return nil, fmt.Errorf("config: stt fallback %q: %w", fb.Name, err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}
