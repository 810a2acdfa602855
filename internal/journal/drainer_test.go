package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/rowmap/internal/core"
	"github.com/rzpsarthak13/rowmap/internal/registry"
)

func TestDrainerDeliversInOrder(t *testing.T) {
	ctx := context.Background()
	j := NewMemoryJournal(10)
	for _, key := range []string{"a", "b", "c", "d"} {
		require.NoError(t, j.Append(ctx, event("users", key)))
	}

	var (
		mu   sync.Mutex
		keys []interface{}
	)
	d := NewDrainer(j, func(ctx context.Context, e *core.ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		keys = append(keys, e.Key)
		if e.Key == "c" {
			return errors.New("downstream rejected")
		}
		return nil
	}, registry.InternalDrainerConfig{Rate: 1000, BatchSize: 2, PollInterval: 5 * time.Millisecond})

	d.Start(ctx)
	d.Start(ctx)
	assert.True(t, d.IsRunning())

	require.Eventually(t, func() bool { return d.Processed() == 4 }, 2*time.Second, 5*time.Millisecond)
	d.Stop()
	d.Stop()
	assert.False(t, d.IsRunning())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []interface{}{"a", "b", "c", "d"}, keys)
	assert.Equal(t, int64(1), d.Failed())
}

func TestDrainerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDrainer(NewMemoryJournal(1), func(ctx context.Context, e *core.ChangeEvent) error { return nil },
		registry.InternalDrainerConfig{})
	d.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		d.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("drainer did not stop")
	}
}

func TestDrainerRestartsAfterContextCancel(t *testing.T) {
	j := NewMemoryJournal(10)
	var processed sync.WaitGroup
	d := NewDrainer(j, func(ctx context.Context, e *core.ChangeEvent) error {
		processed.Done()
		return nil
	}, registry.InternalDrainerConfig{Rate: 1000, PollInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	cancel()
	require.Eventually(t, func() bool { return !d.IsRunning() }, 2*time.Second, 5*time.Millisecond)

	processed.Add(1)
	require.NoError(t, j.Append(context.Background(), event("users", "after-restart")))
	d.Start(context.Background())
	assert.True(t, d.IsRunning())
	require.Eventually(t, func() bool { return d.Processed() == 1 }, 2*time.Second, 5*time.Millisecond)
	processed.Wait()
	d.Stop()
	assert.False(t, d.IsRunning())
}
