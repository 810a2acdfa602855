package client

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"

	"github.com/rzpsarthak13/rowmap/internal/core"
	"github.com/rzpsarthak13/rowmap/internal/database"
	"github.com/rzpsarthak13/rowmap/internal/entity"
	"github.com/rzpsarthak13/rowmap/internal/journal"
	"github.com/rzpsarthak13/rowmap/internal/registry"
	"github.com/rzpsarthak13/rowmap/internal/schema"
)

// ConfigProvider is an interface to provide configuration as YAML without importing the public package.
type ConfigProvider interface {
	GetYAML() ([]byte, error)
}

// ClientImpl wires the connection pool, the write hooks and the optional
// change journal together.
type ClientImpl struct {
	mu        sync.RWMutex
	configMgr *registry.ConfigManager
	pool      *database.Pool
	ownsPool  bool
	executor  *database.Executor
	lifecycle *registry.LifecycleManager
	journal   core.ChangeJournal
	closed    bool
}

// NewClientImpl loads the configuration, applies ROWMAP_* environment
// overrides and initializes the process-wide connection pool.
func NewClientImpl(ctx context.Context, configProvider ConfigProvider) (*ClientImpl, error) {
	configMgr, err := loadConfig(configProvider)
	if err != nil {
		return nil, err
	}

	pool, err := database.Initialize(ctx, configMgr.GetConfig().Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize connection pool: %w", err)
	}

	c, err := newClient(configMgr, pool, true)
	if err != nil {
		database.Reset()
		return nil, err
	}
	return c, nil
}

// NewClientImplWithDB builds a client around an already opened handle.
// The database section of the configuration must name the dialect of db.
// The handle is not closed by Close.
func NewClientImplWithDB(configProvider ConfigProvider, db *sql.DB) (*ClientImpl, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	configMgr, err := loadConfig(configProvider)
	if err != nil {
		return nil, err
	}
	pool, err := database.NewPool(db, configMgr.GetConfig().Database)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap database handle: %w", err)
	}
	return newClient(configMgr, pool, false)
}

func loadConfig(configProvider ConfigProvider) (*registry.ConfigManager, error) {
	if configProvider == nil {
		return nil, fmt.Errorf("config provider cannot be nil")
	}

	configMgr := registry.NewConfigManager()
	yamlData, err := configProvider.GetYAML()
	if err != nil {
		return nil, fmt.Errorf("failed to get config YAML: %w", err)
	}
	if err := configMgr.LoadFromYAML(yamlData); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := configMgr.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return configMgr, nil
}

func newClient(configMgr *registry.ConfigManager, pool *database.Pool, ownsPool bool) (*ClientImpl, error) {
	c := &ClientImpl{
		configMgr: configMgr,
		pool:      pool,
		ownsPool:  ownsPool,
		executor:  database.NewExecutor(pool),
		lifecycle: registry.NewLifecycleManager(),
	}

	journalConfig := configMgr.GetConfig().Journal
	if journalConfig.Type != "" {
		j, err := journal.Create(journalConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create change journal: %w", err)
		}
		c.journal = j
		c.lifecycle.RegisterHook(journal.Hook(j))
		log.Printf("[CLIENT] Change journal enabled (type: %s)", journalConfig.Type)
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *ClientImpl) Config() *registry.InternalConfig {
	return c.configMgr.GetConfig()
}

// Pool returns the connection pool.
func (c *ClientImpl) Pool() *database.Pool { return c.pool }

// Executor returns the query executor.
func (c *ClientImpl) Executor() *database.Executor { return c.executor }

// Lifecycle returns the write hook manager shared by every model of the client.
func (c *ClientImpl) Lifecycle() *registry.LifecycleManager { return c.lifecycle }

// Journal returns the change journal, or nil if none is configured.
func (c *ClientImpl) Journal() core.ChangeJournal { return c.journal }


// Model binds a registered schema to this client's executor and hooks.
func (c *ClientImpl) Model(s *schema.Schema) (*entity.Model, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("client is closed")
	}
	if s == nil {
		return nil, fmt.Errorf("schema cannot be nil")
	}
	return entity.NewModel(s, c.executor, c.lifecycle), nil
}

// Drainer creates a drainer over the change journal.
func (c *ClientImpl) Drainer(handler journal.Handler) (*journal.Drainer, error) {
	if c.journal == nil {
		return nil, fmt.Errorf("no change journal configured")
	}
	return journal.NewDrainer(c.journal, handler, c.configMgr.GetConfig().Drainer), nil
}

// Close closes the journal and, when the client opened it, the pool.
func (c *ClientImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var firstErr error
	if c.journal != nil {
		if err := c.journal.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close change journal: %w", err)
		}
	}
	if c.ownsPool {
		if err := database.Reset(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close connection pool: %w", err)
		}
	}
	return firstErr
}
