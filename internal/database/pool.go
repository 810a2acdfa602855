package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

// PoolStats is a snapshot of the pool's connection bookkeeping.
type PoolStats struct {
	Open      int
	InUse     int
	Idle      int
	WaitCount int64
	MaxSize   int
}

// Pool is a bounded set of reusable connections shared by every entity
// operation. Saturation blocks callers until a connection is released or
// the caller's context is cancelled.
type Pool struct {
	db      *sql.DB
	dialect Dialect
	config  Config
	closed  atomic.Bool
}

// Open opens a pool for the configured driver and eagerly establishes
// MinSize connections.
func Open(ctx context.Context, cfg Config) (*Pool, error) {
	if err := checkSize(cfg); err != nil {
		return nil, err
	}
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(), dialect.DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	p, err := NewPool(db, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := p.warmUp(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[POOL] Opened %s pool to %s (min: %d, max: %d)", dialect.Name(), cfg.Database, cfg.MinSize, cfg.MaxSize)
	return p, nil
}

// NewPool wraps an already opened handle and applies the size limits of cfg.
// No connections are established.
func NewPool(db *sql.DB, cfg Config) (*Pool, error) {
	if err := checkSize(cfg); err != nil {
		return nil, err
	}
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxSize)
	db.SetMaxIdleConns(cfg.MaxSize)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &Pool{
		db:      db,
		dialect: dialect,
		config:  cfg,
	}, nil
}

func checkSize(cfg Config) error {
	if cfg.MaxSize <= 0 {
		return fmt.Errorf("%w: max_size must be greater than 0, got %d", ErrInvalidPoolSize, cfg.MaxSize)
	}
	if cfg.MinSize < 0 || cfg.MinSize > cfg.MaxSize {
		return fmt.Errorf("%w: min_size %d not within [0, %d]", ErrInvalidPoolSize, cfg.MinSize, cfg.MaxSize)
	}
	return nil
}

// warmUp checks out MinSize connections at once, pings each, then returns
// them all to the idle set.
func (p *Pool) warmUp(ctx context.Context) error {
	if p.config.MinSize == 0 {
		return nil
	}
	if p.config.ConnectionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ConnectionTimeout)
		defer cancel()
	}

	var (
		mu    sync.Mutex
		conns []*sql.Conn
	)
	defer func() {
		for _, conn := range conns {
			conn.Close()
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.config.MinSize; i++ {
		g.Go(func() error {
			conn, err := p.db.Conn(gctx)
			if err != nil {
				return err
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
			return conn.PingContext(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("[POOL] ERROR: Warm-up failed: %v", err)
		return fmt.Errorf("failed to establish %d initial connections: %w", p.config.MinSize, err)
	}
	return nil
}

// Acquire hands one connection exclusively to fn and returns it to the pool
// when fn returns, whether fn succeeded, failed or was cancelled.
func (p *Pool) Acquire(ctx context.Context, fn func(ctx context.Context, conn *sql.Conn) error) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(ctx, conn)
}

// Dialect returns the dialect of the pool's driver.
func (p *Pool) Dialect() Dialect { return p.dialect }

// Config returns the configuration the pool was built with.
func (p *Pool) Config() Config { return p.config }

// DB returns the underlying handle.
func (p *Pool) DB() *sql.DB { return p.db }

// Stats returns a snapshot of the pool's connection counts.
func (p *Pool) Stats() PoolStats {
	s := p.db.Stats()
	return PoolStats{
		Open:      s.OpenConnections,
		InUse:     s.InUse,
		Idle:      s.Idle,
		WaitCount: s.WaitCount,
		MaxSize:   s.MaxOpenConnections,
	}
}

// Close closes every connection. Further Acquire calls fail with ErrPoolClosed.
func (p *Pool) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	log.Printf("[POOL] Closing pool")
	return p.db.Close()
}

var (
	defaultMu   sync.Mutex
	defaultPool *Pool
)

// Initialize opens the process-wide pool. Calling it again before Reset
// returns ErrPoolInitialized.
func Initialize(ctx context.Context, cfg Config) (*Pool, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultPool != nil {
		return nil, ErrPoolInitialized
	}
	p, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defaultPool = p
	return p, nil
}

// SetDefault installs an already built pool as the process-wide pool.
func SetDefault(p *Pool) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultPool != nil {
		return ErrPoolInitialized
	}
	defaultPool = p
	return nil
}

// Default returns the process-wide pool. It panics if Initialize has not
// been called.
func Default() *Pool {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultPool == nil {
		panic("database: connection pool used before Initialize")
	}
	return defaultPool
}

// Reset closes and forgets the process-wide pool.
func Reset() error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultPool == nil {
		return nil
	}
	err := defaultPool.Close()
	defaultPool = nil
	return err
}
