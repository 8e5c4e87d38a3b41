package tts

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrEngineNotFound is returned when an engine is not registered.
	ErrEngineNotFound = errors.New("TTS engine not found")
	// ErrEngineExists is returned when trying to register a duplicate engine.
	ErrEngineExists = errors.New("TTS engine already registered")
)

// Registry holds the engines the reader can speak with. The first engine
// registered is the default.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
	def     string
}

func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]Engine),
	}
}

func (r *Registry) Register(engine Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := engine.Name()
	if _, exists := r.engines[name]; exists {
		return errors.Wrap(ErrEngineExists, name)
	}

	r.engines[name] = engine
	if r.def == "" {
		r.def = name
	}

	return nil
}

func (r *Registry) Default() (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.def == "" {
		return nil, ErrEngineNotFound
	}

	return r.engines[r.def], nil
}
