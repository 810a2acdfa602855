package rowmap

import (
	"context"
	"database/sql"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/rzpsarthak13/rowmap/internal/client"
	"github.com/rzpsarthak13/rowmap/internal/core"
	"github.com/rzpsarthak13/rowmap/internal/database"
	"github.com/rzpsarthak13/rowmap/internal/entity"
	"github.com/rzpsarthak13/rowmap/internal/journal"
	"github.com/rzpsarthak13/rowmap/internal/registry"
)

type (
	// Model runs the mapped statements of one schema.
	Model = entity.Model

	// Entity is one in-memory row of a model.
	Entity = entity.Entity

	// QueryOption narrows FindAll.
	QueryOption = entity.QueryOption

	// Row is a result row keyed by column name.
	Row = core.Row

	// OperationType is the kind of write reported in a ChangeEvent.
	OperationType = core.OperationType

	// ChangeEvent describes one persisted write.
	ChangeEvent = core.ChangeEvent

	// ChangeJournal is the log change events are appended to.
	ChangeJournal = core.ChangeJournal

	// Drainer consumes a change journal at a bounded rate.
	Drainer = journal.Drainer

	// PoolStats is a snapshot of the connection pool.
	PoolStats = database.PoolStats
)

// Operations reported in ChangeEvent.Operation.
const (
	OperationInsert = core.OperationInsert
	OperationUpdate = core.OperationUpdate
	OperationDelete = core.OperationDelete
)

// Query options for FindAll.
var (
	Where   = entity.Where
	OrderBy = entity.OrderBy
	Limit   = entity.Limit
	Page    = entity.Page
)

// ErrPoolInitialized is returned by Open while another client opened by
// Open is still in use.
var ErrPoolInitialized = database.ErrPoolInitialized

// IsUniqueViolation reports whether err is a duplicate-key failure from any
// supported driver.
func IsUniqueViolation(err error) bool {
	return database.IsUniqueViolation(err)
}

// configProvider implements client.ConfigProvider to provide config as YAML without import cycles.
type configProvider struct {
	config *Config
}

func (cp *configProvider) GetYAML() ([]byte, error) {
	return yaml.Marshal(cp.config)
}

// Client owns a connection pool and the optional change journal.
//
// Typical usage:
//
//	client, _ := rowmap.Open(ctx, config)
//	defer client.Close()
//
//	users, _ := client.Model(UserSchema)
//	u, _ := users.New(map[string]interface{}{"id": "u1", "name": "Alice"})
//	u.Save(ctx)
//	found, ok, _ := users.Find(ctx, "u1")
type Client struct {
	impl *client.ClientImpl
}

// Open creates a client and initializes the process-wide connection pool.
// ROWMAP_* environment variables override values from config.
// Only one client opened this way may exist at a time.
func Open(ctx context.Context, config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	impl, err := client.NewClientImpl(ctx, &configProvider{config: config})
	if err != nil {
		return nil, err
	}
	return &Client{impl: impl}, nil
}

// OpenDB creates a client around an already opened *sql.DB. config.Database
// must name the dialect of db; its size limits are applied to db. The handle
// is left open by Close.
func OpenDB(config *Config, db *sql.DB) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}

	impl, err := client.NewClientImplWithDB(&configProvider{config: config}, db)
	if err != nil {
		return nil, err
	}
	return &Client{impl: impl}, nil
}

// Model binds a schema returned by Define to this client.
func (c *Client) Model(s *Schema) (*Model, error) {
	return c.impl.Model(s)
}

// MustModel is like Model but panics on error.
func (c *Client) MustModel(s *Schema) *Model {
	m, err := c.impl.Model(s)
	if err != nil {
		panic(err)
	}
	return m
}

// OnWrite registers a hook that runs after every successful save, update
// and remove of any model of this client. Hook errors are logged and never
// fail the write.
func (c *Client) OnWrite(hook func(ctx context.Context, event *ChangeEvent) error) {
	c.impl.Lifecycle().RegisterHook(registry.LifecycleHookFunc(hook))
}

// Journal returns the configured change journal, or nil.
func (c *Client) Journal() ChangeJournal {
	return c.impl.Journal()
}

// Drainer returns a drainer that hands every journalled change to handler
// at the configured rate. Call Start to run it.
func (c *Client) Drainer(handler func(ctx context.Context, event *ChangeEvent) error) (*Drainer, error) {
	return c.impl.Drainer(handler)
}

// Stats returns a snapshot of the connection pool.
func (c *Client) Stats() PoolStats {
	return c.impl.Pool().Stats()
}

// Dialect returns the name of the database dialect in use.
func (c *Client) Dialect() string {
	return c.impl.Pool().Dialect().Name()
}

// Exec runs a statement outside of any model, e.g. DDL. Statements use ?
// placeholders and backtick identifiers regardless of dialect.
func (c *Client) Exec(ctx context.Context, stmt string, args ...interface{}) (int64, error) {
	return c.impl.Executor().Execute(ctx, stmt, args, true)
}

// Query runs a select outside of any model and returns at most limit rows
// (limit <= 0 returns all of them).
func (c *Client) Query(ctx context.Context, stmt string, limit int, args ...interface{}) ([]Row, error) {
	return c.impl.Executor().Select(ctx, stmt, args, limit)
}

// Close closes the journal and the pool opened by Open.
func (c *Client) Close() error {
	return c.impl.Close()
}
