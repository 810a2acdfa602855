package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/rowmap/internal/core"
	"github.com/rzpsarthak13/rowmap/internal/registry"
)

func event(table string, key interface{}) *core.ChangeEvent {
	return &core.ChangeEvent{
		Table:     table,
		Operation: core.OperationInsert,
		Key:       key,
		Data:      core.Row{"id": key},
		Affected:  1,
	}
}

func TestMemoryJournalFIFO(t *testing.T) {
	ctx := context.Background()
	j := NewMemoryJournal(3)

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, j.Append(ctx, event("users", key)))
	}
	assert.ErrorIs(t, j.Append(ctx, event("users", "d")), ErrJournalFull)
	assert.Equal(t, 3, j.Size())

	batch, err := j.Read(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "a", batch[0].Key)
	assert.Equal(t, "b", batch[1].Key)
	assert.False(t, batch[0].Timestamp.IsZero())

	rest, err := j.Read(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "c", rest[0].Key)

	empty, err := j.Read(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryJournalRejectsInvalidEvents(t *testing.T) {
	j := NewMemoryJournal(1)
	assert.ErrorIs(t, j.Append(context.Background(), nil), ErrInvalidEvent)
	assert.ErrorIs(t, j.Append(context.Background(), &core.ChangeEvent{}), ErrInvalidEvent)
}

func TestMemoryJournalClose(t *testing.T) {
	ctx := context.Background()
	j := NewMemoryJournal(2)
	require.NoError(t, j.Append(ctx, event("users", "a")))
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	assert.ErrorIs(t, j.Append(ctx, event("users", "b")), ErrJournalClosed)
	batch, err := j.Read(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestCreate(t *testing.T) {
	assert.Equal(t, []string{"dynamodb", "kafka", "memory", "redis"}, RegisteredTypes())

	j, err := Create(registry.InternalJournalConfig{Type: "memory", BufferSize: 5})
	require.NoError(t, err)
	assert.IsType(t, &MemoryJournal{}, j)

	_, err = Create(registry.InternalJournalConfig{})
	assert.Error(t, err)
	_, err = Create(registry.InternalJournalConfig{Type: "carrier-pigeon"})
	assert.Error(t, err)
	_, err = Create(registry.InternalJournalConfig{Type: "redis"})
	assert.ErrorContains(t, err, "at least one endpoint")
}

func TestRegisterFactoryPanics(t *testing.T) {
	assert.Panics(t, func() { RegisterFactory(nil) })
	assert.Panics(t, func() { RegisterFactory(memoryFactory{}) })
}

func TestValidators(t *testing.T) {
	defaults := registry.DefaultInternalConfig().Journal

	tests := []struct {
		name    string
		mutate  func(c *registry.InternalJournalConfig)
		wantErr bool
	}{
		{"redis defaults", func(c *registry.InternalJournalConfig) { c.Type = "redis" }, false},
		{"redis bad db", func(c *registry.InternalJournalConfig) { c.Type = "redis"; c.RedisConfig.DB = 16 }, true},
		{"redis no timeout", func(c *registry.InternalJournalConfig) { c.Type = "redis"; c.RedisConfig.ReadTimeout = 0 }, true},
		{"kafka defaults", func(c *registry.InternalJournalConfig) { c.Type = "kafka" }, false},
		{"kafka no topic", func(c *registry.InternalJournalConfig) { c.Type = "kafka"; c.KafkaConfig.Topic = "" }, true},
		{"kafka bad acks", func(c *registry.InternalJournalConfig) { c.Type = "kafka"; c.KafkaConfig.RequiredAcks = 2 }, true},
		{"dynamodb defaults", func(c *registry.InternalJournalConfig) { c.Type = "dynamodb" }, false},
		{"dynamodb half credentials", func(c *registry.InternalJournalConfig) {
			c.Type = "dynamodb"
			c.DynamoDBConfig.AccessKeyID = "key"
		}, true},
		{"memory negative buffer", func(c *registry.InternalJournalConfig) { c.Type = "memory"; c.BufferSize = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := registry.InternalConfig{Journal: defaults}
			tt.mutate(&cfg.Journal)
			v, ok := registry.GetValidator(cfg.Journal.Type)
			require.True(t, ok)
			err := v.Validate(&cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigManagerUsesJournalValidators(t *testing.T) {
	cm := registry.NewConfigManager()
	err := cm.LoadFromYAML([]byte(`
database: {driver: sqlite, database: /tmp/x.db}
journal:
  type: kafka
  kafka_config:
    brokers: []
`))
	assert.ErrorContains(t, err, "broker")
}

func TestHook(t *testing.T) {
	ctx := context.Background()
	j := NewMemoryJournal(4)
	lm := registry.NewLifecycleManager()
	lm.RegisterHook(Hook(j))

	require.NoError(t, lm.ExecuteWriteHooks(ctx, event("blogs", "b1")))
	assert.Equal(t, 1, j.Size())

	require.NoError(t, j.Close())
	assert.ErrorIs(t, lm.ExecuteWriteHooks(ctx, event("blogs", "b2")), ErrJournalClosed)
}

func TestEventTimestampPreserved(t *testing.T) {
	j := NewMemoryJournal(1)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	e := event("users", "a")
	e.Timestamp = ts
	require.NoError(t, j.Append(context.Background(), e))
	batch, err := j.Read(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, ts, batch[0].Timestamp)
}
