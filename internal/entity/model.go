package entity

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rzpsarthak13/rowmap/internal/core"
	"github.com/rzpsarthak13/rowmap/internal/database"
	"github.com/rzpsarthak13/rowmap/internal/registry"
	"github.com/rzpsarthak13/rowmap/internal/schema"
)

// Model binds a registered schema to the executor that runs its statements.
type Model struct {
	schema    *schema.Schema
	executor  *database.Executor
	hooks     *registry.LifecycleManager
	mapper    *schema.TypeMapper
	validator *schema.SchemaValidator
}

// NewModel creates a model. hooks may be nil.
func NewModel(s *schema.Schema, executor *database.Executor, hooks *registry.LifecycleManager) *Model {
	return &Model{
		schema:    s,
		executor:  executor,
		hooks:     hooks,
		mapper:    schema.NewTypeMapper(),
		validator: schema.NewSchemaValidator(s),
	}
}

// Schema returns the model's schema.
func (m *Model) Schema() *schema.Schema { return m.schema }

// New constructs an in-memory entity with the given values set explicitly.
func (m *Model) New(values map[string]interface{}) (*Entity, error) {
	e := &Entity{model: m, values: make(map[string]interface{}, len(values))}
	for name, value := range values {
		if err := e.Set(name, value); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// FromRow reconstructs an entity from a result row, converting driver
// values to the Go type of each field kind.
func (m *Model) FromRow(row core.Row) (*Entity, error) {
	e := &Entity{model: m, values: make(map[string]interface{}, len(row))}
	for name, raw := range row {
		f, ok := m.schema.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no field %q", schema.ErrUnknownField, m.schema.Name(), name)
		}
		value, err := m.mapper.ConvertFromDBValue(raw, f.Kind())
		if err != nil {
			return nil, fmt.Errorf("failed to convert column %s: %w", name, err)
		}
		e.values[name] = value
	}
	return e, nil
}

// Find returns the entity with the given primary key. A missing row is
// reported as (nil, false, nil).
func (m *Model) Find(ctx context.Context, pk interface{}) (*Entity, bool, error) {
	stmt := fmt.Sprintf("%s where %s=?", m.schema.SelectStmt(), m.schema.QuotedPrimaryKey())
	rows, err := m.executor.Select(ctx, stmt, []interface{}{pk}, 1)
	if err != nil {
		return nil, false, fmt.Errorf("failed to find %s %v: %w", m.schema.Name(), pk, err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	e, err := m.FromRow(rows[0])
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// FindAll returns the entities matching opts in result order.
func (m *Model) FindAll(ctx context.Context, opts ...QueryOption) ([]*Entity, error) {
	q := &query{}
	for _, opt := range opts {
		opt(q)
	}
	if q.err != nil {
		return nil, q.err
	}

	var b strings.Builder
	b.WriteString(m.schema.SelectStmt())
	args := append([]interface{}{}, q.args...)
	if q.where != "" {
		b.WriteString(" where ")
		b.WriteString(q.where)
	}
	if q.orderBy != "" {
		b.WriteString(" order by ")
		b.WriteString(q.orderBy)
	}
	if q.limited {
		clause, limitArgs := m.executor.Dialect().LimitClause(q.offset, q.count)
		b.WriteString(" ")
		b.WriteString(clause)
		args = append(args, limitArgs...)
	}

	rows, err := m.executor.Select(ctx, b.String(), args, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s rows: %w", m.schema.Name(), err)
	}
	entities := make([]*Entity, 0, len(rows))
	for _, row := range rows {
		e, err := m.FromRow(row)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// FindNumber evaluates a scalar expression such as count(`id`) over the
// table, optionally filtered by where. No row is reported as (nil, false, nil).
func (m *Model) FindNumber(ctx context.Context, expr, where string, args ...interface{}) (interface{}, bool, error) {
	stmt := fmt.Sprintf("select %s _num_ from %s", expr, m.schema.QuotedTable())
	if where != "" {
		stmt += " where " + where
	}
	rows, err := m.executor.Select(ctx, stmt, args, 1)
	if err != nil {
		return nil, false, fmt.Errorf("failed to evaluate %s on %s: %w", expr, m.schema.Name(), err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0]["_num_"], true, nil
}

func (m *Model) write(ctx context.Context, op core.OperationType, stmt string, args []interface{}, key interface{}, data core.Row) error {
	n, err := m.executor.Execute(ctx, stmt, args, m.executor.Autocommit())
	if err != nil {
		return fmt.Errorf("failed to %s %s %v: %w", strings.ToLower(string(op)), m.schema.Name(), key, err)
	}
	if n != 1 {
		log.Printf("[ENTITY] WARNING: %s on %s %v affected %d rows, expected 1", op, m.schema.Table(), key, n)
	}

	if m.hooks == nil {
		return nil
	}
	event := &core.ChangeEvent{
		Table:     m.schema.Table(),
		Operation: op,
		Key:       key,
		Data:      data,
		Affected:  n,
		Timestamp: time.Now(),
	}
	if err := m.hooks.ExecuteWriteHooks(ctx, event); err != nil {
		log.Printf("[ENTITY] ERROR: Write hook failed for %s on %s %v: %v", op, m.schema.Table(), key, err)
	}
	return nil
}
