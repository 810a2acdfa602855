package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindDefaults(t *testing.T) {
	tests := []struct {
		desc    *Descriptor
		sqlType string
		def     interface{}
		hasDef  bool
	}{
		{String("name"), "varchar(100)", nil, false},
		{Boolean("admin"), "boolean", false, true},
		{Integer("score"), "bigint", int64(0), true},
		{Float("ratio"), "real", float64(0), true},
		{Text("content"), "text", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.desc.Name(), func(t *testing.T) {
			assert.Equal(t, tt.sqlType, tt.desc.SQLType())
			assert.False(t, tt.desc.IsPrimaryKey())
			v, ok := tt.desc.Resolve()
			assert.Equal(t, tt.hasDef, ok)
			assert.Equal(t, tt.def, v)
		})
	}
}

func TestOptions(t *testing.T) {
	d := String("id", PrimaryKey(), DDL("varchar(50)"), Default("x"))
	assert.True(t, d.IsPrimaryKey())
	assert.Equal(t, "varchar(50)", d.SQLType())
	v, ok := d.Resolve()
	require.True(t, ok)
	assert.Equal(t, "x", v)

	d = Integer("n", NoDefault())
	assert.False(t, d.HasDefault())

	assert.False(t, Boolean("b").CanBePrimaryKey())
	assert.False(t, Text("t").CanBePrimaryKey())
	assert.True(t, Float("f").CanBePrimaryKey())
}

func TestProducerNotInvokedAtConstruction(t *testing.T) {
	calls := 0
	d := String("id", DefaultFunc(func() interface{} {
		calls++
		return "generated"
	}))
	assert.Equal(t, 0, calls)
	assert.True(t, d.IsProducer())

	v, ok := d.Resolve()
	require.True(t, ok)
	assert.Equal(t, "generated", v)
	assert.Equal(t, 1, calls)
}

func TestNextID(t *testing.T) {
	a := NextID().(string)
	b := NextID().(string)
	assert.Len(t, a, 50)
	assert.NotEqual(t, a, b)
	assert.True(t, a[:15] <= b[:15])
}

func TestNow(t *testing.T) {
	assert.Greater(t, Now().(float64), float64(1e9))
}
