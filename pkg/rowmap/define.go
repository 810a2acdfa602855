package rowmap

import (
	"github.com/rzpsarthak13/rowmap/internal/field"
	"github.com/rzpsarthak13/rowmap/internal/registry"
	"github.com/rzpsarthak13/rowmap/internal/schema"
)

type (
	// Schema is the compiled mapping of an entity type to its table.
	Schema = schema.Schema

	// Field describes one mapped column.
	Field = field.Descriptor

	// FieldOption customizes a Field.
	FieldOption = field.Option
)

// Column constructors. Boolean, Integer and Float default to false, 0 and
// 0.0; String and Text have no default unless one is given.
var (
	String  = field.String
	Boolean = field.Boolean
	Integer = field.Integer
	Float   = field.Float
	Text    = field.Text
)

// Field options.
var (
	PrimaryKey  = field.PrimaryKey
	Default     = field.Default
	DefaultFunc = field.DefaultFunc
	NoDefault   = field.NoDefault
	DDL         = field.DDL
)

// Default value producers.
var (
	NextID = field.NextID
	Now    = field.Now
)

// Registration errors.
var (
	ErrPrimaryKeyNotFound  = schema.ErrPrimaryKeyNotFound
	ErrDuplicatePrimaryKey = schema.ErrDuplicatePrimaryKey
	ErrInvalidPrimaryKey   = schema.ErrInvalidPrimaryKey
	ErrDuplicateField      = schema.ErrDuplicateField
	ErrUnknownField        = schema.ErrUnknownField
	ErrAlreadyRegistered   = registry.ErrAlreadyRegistered
)

// Define registers an entity type with the process-wide schema registry.
// table may be empty, in which case the entity name is used.
func Define(name, table string, fields ...*Field) (*Schema, error) {
	return registry.Default().Register(schema.Definition{
		Name:   name,
		Table:  table,
		Fields: fields,
	})
}

// MustDefine is like Define but panics if the definition is invalid.
// Intended for package-level variables.
func MustDefine(name, table string, fields ...*Field) *Schema {
	s, err := Define(name, table, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Lookup returns the schema registered under name.
func Lookup(name string) (*Schema, bool) {
	return registry.Default().Get(name)
}

// Defined lists the registered entity names in sorted order.
func Defined() []string {
	return registry.Default().List()
}
