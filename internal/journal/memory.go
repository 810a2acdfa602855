package journal

import (
	"context"
	"fmt"
	"sync"

	"github.com/rzpsarthak13/rowmap/internal/core"
	"github.com/rzpsarthak13/rowmap/internal/registry"
)

// MemoryJournal is a bounded in-process journal backed by a buffered channel.
// Events are lost on restart.
type MemoryJournal struct {
	events chan *core.ChangeEvent
	mu     sync.RWMutex
	closed bool
}

// NewMemoryJournal creates an in-memory journal holding up to bufferSize events.
func NewMemoryJournal(bufferSize int) *MemoryJournal {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &MemoryJournal{
		events: make(chan *core.ChangeEvent, bufferSize),
	}
}

// Append adds an event. It fails with ErrJournalFull instead of blocking.
func (j *MemoryJournal) Append(ctx context.Context, event *core.ChangeEvent) error {
	if err := checkEvent(event); err != nil {
		return err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrJournalClosed
	}

	select {
	case j.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrJournalFull
	}
}

// Read returns up to batchSize events without waiting for more to arrive.
func (j *MemoryJournal) Read(ctx context.Context, batchSize int) ([]*core.ChangeEvent, error) {
	batchSize = batchOrDefault(batchSize)
	events := make([]*core.ChangeEvent, 0, batchSize)

	for i := 0; i < batchSize; i++ {
		select {
		case event, ok := <-j.events:
			if !ok {
				return events, nil
			}
			events = append(events, event)
		case <-ctx.Done():
			return events, ctx.Err()
		default:
			return events, nil
		}
	}
	return events, nil
}

// Size returns the number of buffered events.
func (j *MemoryJournal) Size() int {
	return len(j.events)
}

// Close stops further appends. Buffered events can still be read.
func (j *MemoryJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	close(j.events)
	return nil
}

type memoryFactory struct{}

func (memoryFactory) Type() string { return "memory" }

func (memoryFactory) Create(config registry.InternalJournalConfig) (core.ChangeJournal, error) {
	return NewMemoryJournal(config.BufferSize), nil
}

func validateMemory(config registry.InternalJournalConfig) error {
	if config.BufferSize < 0 {
		return fmt.Errorf("buffer_size must be non-negative, got: %d", config.BufferSize)
	}
	return nil
}

func init() {
	register(memoryFactory{}, validateMemory)
}
