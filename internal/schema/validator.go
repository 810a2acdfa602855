package schema

import (
	"errors"
	"fmt"
)

// ErrUnknownField is returned when a value is keyed by a name the schema does not declare.
var ErrUnknownField = errors.New("unknown field")

// SchemaValidator validates entity values against a schema.
type SchemaValidator struct {
	schema *Schema
	mapper *TypeMapper
}

// NewSchemaValidator creates a new schema validator.
func NewSchemaValidator(schema *Schema) *SchemaValidator {
	return &SchemaValidator{
		schema: schema,
		mapper: NewTypeMapper(),
	}
}

// ValidateField checks that name is declared and that value is compatible
// with the field's kind. nil is always accepted.
func (sv *SchemaValidator) ValidateField(name string, value interface{}) error {
	f, ok := sv.schema.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s has no field %q", ErrUnknownField, sv.schema.Name(), name)
	}
	if value == nil {
		return nil
	}
	if _, err := sv.mapper.ConvertToDBValue(value, f.Kind()); err != nil {
		return fmt.Errorf("field '%s': type mismatch: expected %s, got %T: %w", name, f.Kind(), value, err)
	}
	return nil
}

// ValidateRecord validates every key of a record. Missing fields are allowed.
func (sv *SchemaValidator) ValidateRecord(record map[string]interface{}) error {
	if record == nil {
		return nil
	}
	for name, value := range record {
		if err := sv.ValidateField(name, value); err != nil {
			return err
		}
	}
	return nil
}
