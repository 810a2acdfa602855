package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rzpsarthak13/rowmap/internal/core"
	"github.com/rzpsarthak13/rowmap/internal/registry"
)

var (
	// ErrJournalClosed is returned when appending to or reading from a closed journal.
	ErrJournalClosed = errors.New("change journal is closed")

	// ErrInvalidEvent is returned for nil events or events without a table.
	ErrInvalidEvent = errors.New("invalid change event")

	// ErrJournalFull is returned when a bounded journal cannot accept more events.
	ErrJournalFull = errors.New("change journal is full")
)

const defaultBatchSize = 100

// Factory is the Strategy interface for creating journal backends.
// Each backend registers its factory from init().
type Factory interface {
	// Create creates a journal from an already validated configuration.
	Create(config registry.InternalJournalConfig) (core.ChangeJournal, error)

	// Type returns the journal type this factory handles (e.g. "kafka").
	Type() string
}

var (
	factoryRegistry = make(map[string]Factory)
	registryMutex   sync.RWMutex
)

// RegisterFactory registers a journal factory.
// Panics if factory is nil, type is empty, or type is already registered.
func RegisterFactory(factory Factory) {
	if factory == nil {
		panic("factory cannot be nil")
	}
	if factory.Type() == "" {
		panic("factory type cannot be empty")
	}

	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, exists := factoryRegistry[factory.Type()]; exists {
		panic(fmt.Sprintf("factory for type %q is already registered", factory.Type()))
	}
	factoryRegistry[factory.Type()] = factory
}

// Create validates config with the validator registered for its type and
// builds the journal with the matching factory.
func Create(config registry.InternalJournalConfig) (core.ChangeJournal, error) {
	if config.Type == "" {
		return nil, fmt.Errorf("journal type is required")
	}

	registryMutex.RLock()
	factory, exists := factoryRegistry[config.Type]
	registryMutex.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unsupported journal type: %s", config.Type)
	}

	if validator, ok := registry.GetValidator(config.Type); ok {
		if err := validator.Validate(&registry.InternalConfig{Journal: config}); err != nil {
			return nil, fmt.Errorf("invalid configuration for %s: %w", config.Type, err)
		}
	}

	return factory.Create(config)
}

// RegisteredTypes returns the sorted list of registered journal types.
func RegisteredTypes() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	types := make([]string, 0, len(factoryRegistry))
	for t := range factoryRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Hook returns a write hook that appends every change event to j.
func Hook(j core.ChangeJournal) registry.LifecycleHook {
	return registry.LifecycleHookFunc(func(ctx context.Context, event *core.ChangeEvent) error {
		if err := j.Append(ctx, event); err != nil {
			return fmt.Errorf("failed to journal %s on %s: %w", event.Operation, event.Table, err)
		}
		return nil
	})
}

func checkEvent(event *core.ChangeEvent) error {
	if event == nil {
		return ErrInvalidEvent
	}
	if event.Table == "" {
		return fmt.Errorf("%w: table name is required", ErrInvalidEvent)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return nil
}

func batchOrDefault(batchSize int) int {
	if batchSize <= 0 {
		return defaultBatchSize
	}
	return batchSize
}

// journalValidator validates the journal section for one backend type.
type journalValidator struct {
	journalType string
	validate    func(config registry.InternalJournalConfig) error
}

func (v *journalValidator) Type() string { return v.journalType }

func (v *journalValidator) Validate(config *registry.InternalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if config.Journal.Type != v.journalType {
		return fmt.Errorf("invalid type for %s validator: %s", v.journalType, config.Journal.Type)
	}
	return v.validate(config.Journal)
}

func register(factory Factory, validate func(config registry.InternalJournalConfig) error) {
	RegisterFactory(factory)
	registry.RegisterValidator(&journalValidator{journalType: factory.Type(), validate: validate})
}
