package field

import "fmt"

// Kind identifies one of the canonical column kinds.
type Kind string

const (
	KindString  Kind = "string"
	KindBoolean Kind = "boolean"
	KindInteger Kind = "integer"
	KindFloat   Kind = "float"
	KindText    Kind = "text"
)

// Producer computes a default value when an entity attribute is unset.
// It is invoked lazily by the entity layer, never at registration time.
type Producer func() interface{}

// Descriptor is the declarative metadata for one mapped column.
// A Descriptor is immutable once constructed.
type Descriptor struct {
	name       string
	kind       Kind
	sqlType    string
	primaryKey bool
	hasDefault bool
	value      interface{}
	producer   Producer
}

// Option customizes a Descriptor at construction time.
type Option func(*Descriptor)

// PrimaryKey marks the field as the schema's primary key.
func PrimaryKey() Option {
	return func(d *Descriptor) { d.primaryKey = true }
}

// Default sets a concrete default value.
func Default(v interface{}) Option {
	return func(d *Descriptor) {
		d.hasDefault = true
		d.value = v
		d.producer = nil
	}
}

// DefaultFunc sets a producer default, evaluated at most once per entity.
func DefaultFunc(p Producer) Option {
	return func(d *Descriptor) {
		if p == nil {
			return
		}
		d.hasDefault = true
		d.value = nil
		d.producer = p
	}
}

// NoDefault removes the kind's default.
func NoDefault() Option {
	return func(d *Descriptor) {
		d.hasDefault = false
		d.value = nil
		d.producer = nil
	}
}

// DDL overrides the column type, e.g. "varchar(50)".
func DDL(sqlType string) Option {
	return func(d *Descriptor) {
		if sqlType != "" {
			d.sqlType = sqlType
		}
	}
}

func newDescriptor(name string, kind Kind, sqlType string, opts []Option) *Descriptor {
	d := &Descriptor{name: name, kind: kind, sqlType: sqlType}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// String declares a varchar(100) column without a default.
func String(name string, opts ...Option) *Descriptor {
	return newDescriptor(name, KindString, "varchar(100)", opts)
}

// Boolean declares a boolean column defaulting to false.
func Boolean(name string, opts ...Option) *Descriptor {
	return newDescriptor(name, KindBoolean, "boolean", append([]Option{Default(false)}, opts...))
}

// Integer declares a bigint column defaulting to 0.
func Integer(name string, opts ...Option) *Descriptor {
	return newDescriptor(name, KindInteger, "bigint", append([]Option{Default(int64(0))}, opts...))
}

// Float declares a real column defaulting to 0.0.
func Float(name string, opts ...Option) *Descriptor {
	return newDescriptor(name, KindFloat, "real", append([]Option{Default(float64(0))}, opts...))
}

// Text declares a text column without a default.
func Text(name string, opts ...Option) *Descriptor {
	return newDescriptor(name, KindText, "text", opts)
}

// Name returns the column name.
func (d *Descriptor) Name() string { return d.name }

// Kind returns the canonical kind.
func (d *Descriptor) Kind() Kind { return d.kind }

// SQLType returns the column's SQL type.
func (d *Descriptor) SQLType() string { return d.sqlType }

// IsPrimaryKey reports whether the field is the primary key.
func (d *Descriptor) IsPrimaryKey() bool { return d.primaryKey }

// HasDefault reports whether the field declares a default value or producer.
func (d *Descriptor) HasDefault() bool { return d.hasDefault }

// IsProducer reports whether the default is computed by a producer.
func (d *Descriptor) IsProducer() bool { return d.producer != nil }

// Resolve returns the default value, invoking the producer if there is one.
// The second return value is false when the field has no default.
func (d *Descriptor) Resolve() (interface{}, bool) {
	if !d.hasDefault {
		return nil, false
	}
	if d.producer != nil {
		return d.producer(), true
	}
	return d.value, true
}

// CanBePrimaryKey reports whether the kind may carry the primary key.
func (d *Descriptor) CanBePrimaryKey() bool {
	return d.kind != KindBoolean && d.kind != KindText
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("<%s,%s:%s>", d.kind, d.sqlType, d.name)
}
