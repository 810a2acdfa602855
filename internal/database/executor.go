package database

import (
	"context"
	"database/sql"
	"log"

	"github.com/rzpsarthak13/rowmap/internal/core"
)

// Executor runs portable statements against a pool.
type Executor struct {
	pool       *Pool
	autocommit bool
}

// NewExecutor creates an executor bound to pool. Entity writes use the
// pool's configured autocommit mode.
func NewExecutor(pool *Pool) *Executor {
	return &Executor{
		pool:       pool,
		autocommit: pool.Config().Autocommit,
	}
}

// Pool returns the pool the executor draws connections from.
func (e *Executor) Pool() *Pool { return e.pool }

// Dialect returns the dialect statements are rebound to.
func (e *Executor) Dialect() Dialect { return e.pool.Dialect() }

// Autocommit reports the default commit mode for writes.
func (e *Executor) Autocommit() bool { return e.autocommit }

// Select runs a query and returns at most limit rows keyed by column name.
// A limit <= 0 returns every row.
func (e *Executor) Select(ctx context.Context, stmt string, args []interface{}, limit int) ([]core.Row, error) {
	query := e.pool.Dialect().Rebind(stmt)
	log.Printf("[EXECUTOR] Executing query: %s with %d args", query, len(args))

	var result []core.Row
	err := e.pool.Acquire(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		for rows.Next() {
			if limit > 0 && len(result) >= limit {
				break
			}
			values := make([]interface{}, len(cols))
			ptrs := make([]interface{}, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			row := make(core.Row, len(cols))
			for i, col := range cols {
				row[col] = normalize(values[i])
			}
			result = append(result, row)
		}
		return rows.Err()
	})
	if err != nil {
		log.Printf("[EXECUTOR] ERROR: Query failed: %v", err)
		return nil, err
	}

	log.Printf("[EXECUTOR] Query returned %d rows", len(result))
	return result, nil
}

// Execute runs a write statement and returns the affected row count.
// Without autocommit the statement runs in its own transaction which is
// rolled back on failure; the statement's error is returned as is.
func (e *Executor) Execute(ctx context.Context, stmt string, args []interface{}, autocommit bool) (int64, error) {
	query := e.pool.Dialect().Rebind(stmt)
	log.Printf("[EXECUTOR] Executing statement: %s with %d args (autocommit: %t)", query, len(args), autocommit)

	var affected int64
	err := e.pool.Acquire(ctx, func(ctx context.Context, conn *sql.Conn) error {
		if autocommit {
			res, err := conn.ExecContext(ctx, query, args...)
			if err != nil {
				return err
			}
			affected, err = res.RowsAffected()
			return err
		}

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("[EXECUTOR] ERROR: Rollback failed: %v", rbErr)
			}
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		affected = n
		return nil
	})
	if err != nil {
		log.Printf("[EXECUTOR] ERROR: Statement failed: %v", err)
		return 0, err
	}

	log.Printf("[EXECUTOR] Statement executed successfully (rows affected: %d)", affected)
	return affected, nil
}

func normalize(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
