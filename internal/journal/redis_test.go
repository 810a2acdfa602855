package journal

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/rowmap/internal/registry"
)

func newTestRedisJournal(t *testing.T) (*RedisJournal, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	j := NewRedisJournalFromClient(client, "")
	t.Cleanup(func() { _ = j.Close() })
	return j, mr
}

func TestRedisJournalFIFO(t *testing.T) {
	ctx := context.Background()
	j, mr := newTestRedisJournal(t)

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, j.Append(ctx, event("users", key)))
	}
	assert.Equal(t, 3, j.Size())
	assert.True(t, mr.Exists("rowmap:journal"))

	batch, err := j.Read(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "a", batch[0].Key)
	assert.Equal(t, "b", batch[1].Key)
	assert.Equal(t, "users", batch[0].Table)
	assert.False(t, batch[0].Timestamp.IsZero())
	assert.Equal(t, 1, j.Size())

	rest, err := j.Read(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "c", rest[0].Key)

	empty, err := j.Read(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, 0, j.Size())
}

func TestRedisJournalSkipsUndecodableEntries(t *testing.T) {
	ctx := context.Background()
	j, mr := newTestRedisJournal(t)

	require.NoError(t, j.Append(ctx, event("users", "a")))
	_, err := mr.Push("rowmap:journal", "not json")
	require.NoError(t, err)
	require.NoError(t, j.Append(ctx, event("users", "b")))
	assert.Equal(t, 3, j.Size())

	batch, err := j.Read(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "a", batch[0].Key)
	assert.Equal(t, "b", batch[1].Key)
	assert.Equal(t, 0, j.Size())
}

func TestRedisJournalRejectsInvalidEvents(t *testing.T) {
	j, mr := newTestRedisJournal(t)
	assert.ErrorIs(t, j.Append(context.Background(), nil), ErrInvalidEvent)
	assert.ErrorIs(t, j.Append(context.Background(), event("", "a")), ErrInvalidEvent)
	assert.False(t, mr.Exists("rowmap:journal"))
}

func TestRedisJournalClose(t *testing.T) {
	ctx := context.Background()
	j, _ := newTestRedisJournal(t)
	require.NoError(t, j.Append(ctx, event("users", "a")))

	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	assert.ErrorIs(t, j.Append(ctx, event("users", "b")), ErrJournalClosed)
	_, err := j.Read(ctx, 1)
	assert.ErrorIs(t, err, ErrJournalClosed)
	assert.Equal(t, 0, j.Size())
}

func TestRedisJournalFromConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	config := registry.InternalJournalConfig{
		Type: "redis",
		RedisConfig: registry.InternalRedisConfig{
			Endpoints:    []string{mr.Addr()},
			PoolSize:     2,
			Key:          "blog:changes",
			DialTimeout:  time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
	require.NoError(t, validateRedis(config))

	created, err := redisFactory{}.Create(config)
	require.NoError(t, err)
	defer created.Close()

	require.NoError(t, created.Append(context.Background(), event("posts", 1)))
	assert.True(t, mr.Exists("blog:changes"))
	assert.Equal(t, 1, created.Size())
}

func TestRedisJournalUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisJournal(registry.InternalRedisConfig{
		Endpoints:   []string{addr},
		DialTimeout: 200 * time.Millisecond,
	})
	assert.Error(t, err)
}
