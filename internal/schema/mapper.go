package schema

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/rzpsarthak13/rowmap/internal/field"
)

// TypeMapper converts between the values drivers hand back and the Go
// values an entity holds for each field kind.
type TypeMapper struct{}

// NewTypeMapper creates a new type mapper.
func NewTypeMapper() *TypeMapper {
	return &TypeMapper{}
}

// ConvertFromDBValue converts a value read from the database into the Go
// type of the field kind. NULL stays nil.
func (tm *TypeMapper) ConvertFromDBValue(value interface{}, kind field.Kind) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	// Handle sql.Null* types
	if valuer, ok := value.(driver.Valuer); ok {
		val, err := valuer.Value()
		if err != nil {
			return nil, err
		}
		if val == nil {
			return nil, nil
		}
		value = val
	}

	return tm.convert(value, kind)
}

// ConvertToDBValue coerces a value to the field kind before it is bound.
func (tm *TypeMapper) ConvertToDBValue(value interface{}, kind field.Kind) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	return tm.convert(value, kind)
}

func (tm *TypeMapper) convert(value interface{}, kind field.Kind) (interface{}, error) {
	switch kind {
	case field.KindBoolean:
		return tm.toBool(value)
	case field.KindInteger:
		return tm.toInt64(value)
	case field.KindFloat:
		return tm.toFloat64(value)
	case field.KindString, field.KindText:
		return tm.toString(value)
	default:
		return value, nil
	}
}

// Helper conversion functions

func (tm *TypeMapper) toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint:
		return uintToInt64(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return uintToInt64(v)
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return tm.toInt64(string(v))
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert string to int64: %w", err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", value)
	}
}

func uintToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("cannot convert %d to int64: out of range", v)
	}
	return int64(v), nil
}

// floatToInt64 accepts only whole numbers within the int64 range.
func floatToInt64(v float64) (int64, error) {
	if v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("cannot convert %v to int64: not an integer", v)
	}
	if v < math.MinInt64 || v >= math.MaxInt64 {
		return 0, fmt.Errorf("cannot convert %v to int64: out of range", v)
	}
	return int64(v), nil
}

func (tm *TypeMapper) toFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case []byte:
		return tm.toFloat64(string(v))
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert string to float64: %w", err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", value)
	}
}

func (tm *TypeMapper) toString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), nil
	case float32, float64:
		return fmt.Sprintf("%g", v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case time.Time:
		return v.Format(time.RFC3339), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", value)
	}
}

func (tm *TypeMapper) toBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int, int8, int16, int32, int64:
		// Non-zero is true
		return reflect.ValueOf(v).Int() != 0, nil
	case uint, uint8, uint16, uint32, uint64:
		// Non-zero is true
		return reflect.ValueOf(v).Uint() != 0, nil
	case []byte:
		return tm.toBool(string(v))
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			// Try numeric string
			if i, err := strconv.ParseInt(v, 10, 64); err == nil {
				return i != 0, nil
			}
			return false, fmt.Errorf("cannot convert string to bool: %w", err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("cannot convert %T to bool", value)
	}
}
