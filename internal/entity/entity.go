package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/rzpsarthak13/rowmap/internal/core"
)

// Entity is one row of a mapped table held in memory. Only declared fields
// can be set. An entity is not safe for concurrent mutation.
type Entity struct {
	model  *Model
	values map[string]interface{}
}

// Model returns the model the entity belongs to.
func (e *Entity) Model() *Model { return e.model }

// Set assigns a declared field, converting the value to the field's kind.
func (e *Entity) Set(name string, value interface{}) error {
	if err := e.model.validator.ValidateField(name, value); err != nil {
		return err
	}
	f, _ := e.model.schema.Field(name)
	converted, err := e.model.mapper.ConvertToDBValue(value, f.Kind())
	if err != nil {
		return err
	}
	e.values[name] = converted
	return nil
}

// Get returns the value of a field and whether it has been set.
func (e *Entity) Get(name string) (interface{}, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Has reports whether a field has been set.
func (e *Entity) Has(name string) bool {
	_, ok := e.values[name]
	return ok
}

// GetValue returns the current value of a field, or nil if it was never set.
func (e *Entity) GetValue(name string) interface{} {
	return e.values[name]
}

// GetValueOrDefault returns the field's value. A field that was never set
// takes its declared default, which is stored on the entity so a producer
// runs at most once.
func (e *Entity) GetValueOrDefault(name string) interface{} {
	if v, ok := e.values[name]; ok {
		return v
	}
	f, ok := e.model.schema.Field(name)
	if !ok {
		return nil
	}
	v, ok := f.Resolve()
	if !ok {
		return nil
	}
	converted, err := e.model.mapper.ConvertToDBValue(v, f.Kind())
	if err != nil {
		log.Printf("[ENTITY] WARNING: Default for %s.%s does not fit %s, binding %T as is: %v",
			e.model.schema.Name(), name, f.Kind(), v, err)
		converted = v
	}
	e.values[name] = converted
	return converted
}

// Key returns the primary key value, or nil if it is not set.
func (e *Entity) Key() interface{} {
	return e.values[e.model.schema.PrimaryKey()]
}

// Values returns a row-keyed copy of every set field.
func (e *Entity) Values() core.Row {
	return core.Row(e.values).Clone()
}

// MarshalJSON encodes the entity as its row-keyed values.
func (e *Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.values)
}

// Save inserts the entity as a new row. Unset fields take their defaults.
func (e *Entity) Save(ctx context.Context) error {
	s := e.model.schema
	fields := s.Fields()
	args := make([]interface{}, 0, len(fields)+1)
	data := make(core.Row, len(fields)+1)
	for _, name := range fields {
		v := e.GetValueOrDefault(name)
		args = append(args, v)
		data[name] = v
	}
	pk := e.GetValueOrDefault(s.PrimaryKey())
	args = append(args, pk)
	data[s.PrimaryKey()] = pk

	return e.model.write(ctx, core.OperationInsert, s.InsertStmt(), args, pk, data)
}

// Update writes the current values of the non-key fields to the row with
// the entity's primary key. Unset fields are written as NULL.
func (e *Entity) Update(ctx context.Context) error {
	s := e.model.schema
	fields := s.Fields()
	if len(fields) == 0 {
		return fmt.Errorf("%s has no fields to update", s.Name())
	}
	args := make([]interface{}, 0, len(fields)+1)
	data := make(core.Row, len(fields)+1)
	for _, name := range fields {
		v := e.GetValue(name)
		args = append(args, v)
		data[name] = v
	}
	pk := e.GetValue(s.PrimaryKey())
	args = append(args, pk)
	data[s.PrimaryKey()] = pk

	return e.model.write(ctx, core.OperationUpdate, s.UpdateStmt(), args, pk, data)
}

// Remove deletes the row with the entity's primary key.
func (e *Entity) Remove(ctx context.Context) error {
	pk := e.GetValue(e.model.schema.PrimaryKey())
	return e.model.write(ctx, core.OperationDelete, e.model.schema.DeleteStmt(), []interface{}{pk}, pk, nil)
}
