package schema

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/rzpsarthak13/rowmap/internal/field"
)

var (
	// ErrPrimaryKeyNotFound is returned when a definition declares no primary key.
	ErrPrimaryKeyNotFound = errors.New("primary key not found")

	// ErrDuplicatePrimaryKey is returned when a definition declares more than one primary key.
	ErrDuplicatePrimaryKey = errors.New("duplicate primary key")

	// ErrInvalidPrimaryKey is returned when a boolean or text field is marked as primary key.
	ErrInvalidPrimaryKey = errors.New("field kind cannot be a primary key")

	// ErrDuplicateField is returned when two fields share a name.
	ErrDuplicateField = errors.New("duplicate field")

	// ErrInvalidDefinition is returned for structurally broken definitions.
	ErrInvalidDefinition = errors.New("invalid schema definition")
)

// Definition is the input to the registrar: an entity type's name, an
// optional explicit table name, and its fields in declaration order.
type Definition struct {
	Name   string
	Table  string
	Fields []*field.Descriptor
}

// Schema is the precompiled description of an entity type. It is built once
// and never modified afterwards, so it is safe for concurrent readers.
type Schema struct {
	name       string
	table      string
	primaryKey string
	fields     []string
	byName     map[string]*field.Descriptor

	selectStmt string
	insertStmt string
	updateStmt string
	deleteStmt string
}

// Build partitions the definition's fields, checks that exactly one primary
// key is declared, and derives the select/insert/update/delete templates.
func Build(def Definition) (*Schema, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("%w: entity name cannot be empty", ErrInvalidDefinition)
	}
	table := def.Table
	if table == "" {
		table = def.Name
	}
	log.Printf("[SCHEMA] Found model: %s (table: %s)", def.Name, table)

	byName := make(map[string]*field.Descriptor, len(def.Fields))
	fields := make([]string, 0, len(def.Fields))
	primaryKey := ""
	mapper := NewTypeMapper()

	for _, f := range def.Fields {
		if f == nil {
			return nil, fmt.Errorf("%w: %s has a nil field", ErrInvalidDefinition, def.Name)
		}
		if f.Name() == "" {
			return nil, fmt.Errorf("%w: %s has a field without a name", ErrInvalidDefinition, def.Name)
		}
		if _, exists := byName[f.Name()]; exists {
			return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateField, def.Name, f.Name())
		}
		byName[f.Name()] = f

		if f.HasDefault() && !f.IsProducer() {
			v, _ := f.Resolve()
			if _, err := mapper.ConvertToDBValue(v, f.Kind()); err != nil {
				return nil, fmt.Errorf("%w: default of %s.%s: %v", ErrInvalidDefinition, def.Name, f.Name(), err)
			}
		}

		if !f.IsPrimaryKey() {
			fields = append(fields, f.Name())
			continue
		}
		if !f.CanBePrimaryKey() {
			return nil, fmt.Errorf("%w: %s.%s is %s", ErrInvalidPrimaryKey, def.Name, f.Name(), f.Kind())
		}
		if primaryKey != "" {
			return nil, fmt.Errorf("%w for field: %s", ErrDuplicatePrimaryKey, f.Name())
		}
		primaryKey = f.Name()
	}
	if primaryKey == "" {
		return nil, fmt.Errorf("%w in %s", ErrPrimaryKeyNotFound, def.Name)
	}

	s := &Schema{
		name:       def.Name,
		table:      table,
		primaryKey: primaryKey,
		fields:     fields,
		byName:     byName,
	}
	s.compile()
	return s, nil
}

func (s *Schema) compile() {
	quoted := make([]string, len(s.fields))
	assignments := make([]string, len(s.fields))
	for i, f := range s.fields {
		quoted[i] = quote(f)
		assignments[i] = quote(f) + "=?"
	}

	selectCols := append([]string{quote(s.primaryKey)}, quoted...)
	s.selectStmt = fmt.Sprintf("select %s from %s", strings.Join(selectCols, ", "), quote(s.table))

	insertCols := append(append([]string{}, quoted...), quote(s.primaryKey))
	s.insertStmt = fmt.Sprintf("insert into %s (%s) values (%s)",
		quote(s.table), strings.Join(insertCols, ", "), Placeholders(len(insertCols)))

	s.updateStmt = fmt.Sprintf("update %s set %s where %s=?",
		quote(s.table), strings.Join(assignments, ", "), quote(s.primaryKey))

	s.deleteStmt = fmt.Sprintf("delete from %s where %s=?", quote(s.table), quote(s.primaryKey))
}

func quote(ident string) string {
	return "`" + ident + "`"
}

// Placeholders returns n portable placeholders joined by ", ".
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Name returns the entity type name.
func (s *Schema) Name() string { return s.name }

// Table returns the mapped table name.
func (s *Schema) Table() string { return s.table }

// PrimaryKey returns the primary key field name.
func (s *Schema) PrimaryKey() string { return s.primaryKey }

// Fields returns the non-key field names in declaration order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the descriptor for a declared field.
func (s *Schema) Field(name string) (*field.Descriptor, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Columns returns every field name, primary key first, in select order.
func (s *Schema) Columns() []string {
	return append([]string{s.primaryKey}, s.fields...)
}

// SelectStmt returns the precompiled select template.
func (s *Schema) SelectStmt() string { return s.selectStmt }

// InsertStmt returns the precompiled insert template.
func (s *Schema) InsertStmt() string { return s.insertStmt }

// UpdateStmt returns the precompiled update template.
func (s *Schema) UpdateStmt() string { return s.updateStmt }

// DeleteStmt returns the precompiled delete template.
func (s *Schema) DeleteStmt() string { return s.deleteStmt }

// QuotedTable returns the backtick quoted table name.
func (s *Schema) QuotedTable() string { return quote(s.table) }

// QuotedPrimaryKey returns the backtick quoted primary key column.
func (s *Schema) QuotedPrimaryKey() string { return quote(s.primaryKey) }
