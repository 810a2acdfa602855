package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rzpsarthak13/rowmap/internal/schema"
)

// ErrAlreadyRegistered is returned when an entity name is registered twice.
var ErrAlreadyRegistered = errors.New("entity already registered")

// SchemaMetadata describes a registered entity type.
type SchemaMetadata struct {
	// Schema is the precompiled schema.
	Schema *schema.Schema

	// RegisteredAt is when the schema was built.
	RegisteredAt time.Time
}

// SchemaRegistry caches one schema per entity type for the lifetime of the
// process. Schemas are immutable, so lookups hand out the shared pointer.
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]*SchemaMetadata
}

// NewSchemaRegistry creates an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{
		schemas: make(map[string]*SchemaMetadata),
	}
}

var defaultSchemaRegistry = NewSchemaRegistry()

// Default returns the process-wide registry.
func Default() *SchemaRegistry {
	return defaultSchemaRegistry
}

// Register builds the schema for def and caches it under def.Name.
// Registering the same name twice is a programming error and fails.
func (sr *SchemaRegistry) Register(def schema.Definition) (*schema.Schema, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if _, exists := sr.schemas[def.Name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyRegistered, def.Name)
	}

	s, err := schema.Build(def)
	if err != nil {
		return nil, fmt.Errorf("failed to register %q: %w", def.Name, err)
	}

	sr.schemas[def.Name] = &SchemaMetadata{
		Schema:       s,
		RegisteredAt: time.Now(),
	}
	return s, nil
}

// Get returns the schema registered under name.
func (sr *SchemaRegistry) Get(name string) (*schema.Schema, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	metadata, exists := sr.schemas[name]
	if !exists {
		return nil, false
	}
	return metadata.Schema, true
}

// GetMetadata returns a copy of the metadata for name.
func (sr *SchemaRegistry) GetMetadata(name string) (*SchemaMetadata, error) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	metadata, exists := sr.schemas[name]
	if !exists {
		return nil, fmt.Errorf("entity %q is not registered", name)
	}
	copied := *metadata
	return &copied, nil
}

// List returns the registered entity names in sorted order.
func (sr *SchemaRegistry) List() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered entity types.
func (sr *SchemaRegistry) Count() int {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	return len(sr.schemas)
}
