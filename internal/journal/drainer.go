package journal

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/rzpsarthak13/rowmap/internal/core"
	"github.com/rzpsarthak13/rowmap/internal/registry"
)

// Handler consumes one drained change event.
type Handler func(ctx context.Context, event *core.ChangeEvent) error

// Drainer reads events from a journal in the background and hands each one
// to a handler at no more than Rate events per second.
type Drainer struct {
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	journal core.ChangeJournal
	handler Handler
	config  registry.InternalDrainerConfig

	processed atomic.Int64
	failed    atomic.Int64
}

// NewDrainer creates a drainer. Zero config values take the defaults.
func NewDrainer(j core.ChangeJournal, handler Handler, config registry.InternalDrainerConfig) *Drainer {
	defaults := registry.DefaultInternalConfig().Drainer
	if config.Rate <= 0 {
		config.Rate = defaults.Rate
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}

	return &Drainer{
		journal: j,
		handler: handler,
		config:  config,
	}
}

// Start runs the drain loop in a new goroutine until Stop is called or ctx
// is cancelled. Starting a running drainer does nothing.
func (d *Drainer) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})

	go d.run(ctx, d.stopCh, d.doneCh)
	log.Printf("[DRAINER] Started with drain rate: %d events/sec", d.config.Rate)
}

// Stop stops the loop and waits for the event in progress to finish.
func (d *Drainer) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	stopCh, doneCh := d.stopCh, d.doneCh
	d.mu.Unlock()

	close(stopCh)
	<-doneCh
	log.Printf("[DRAINER] Stopped after %d events (%d failed)", d.processed.Load(), d.failed.Load())
}

// IsRunning reports whether the loop is running.
func (d *Drainer) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Processed returns how many events were handed to the handler.
func (d *Drainer) Processed() int64 { return d.processed.Load() }

// Failed returns how many events the handler rejected.
func (d *Drainer) Failed() int64 { return d.failed.Load() }

func (d *Drainer) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer func() {
		// A cancelled ctx ends the loop without Stop; allow a later Start.
		d.mu.Lock()
		if d.doneCh == doneCh {
			d.running = false
		}
		d.mu.Unlock()
		close(doneCh)
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	limiter := rate.NewLimiter(rate.Limit(d.config.Rate), 1)
	for {
		if ctx.Err() != nil {
			return
		}

		events, err := d.journal.Read(ctx, d.config.BatchSize)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[DRAINER] ERROR: Read failed: %v", err)
		}
		if len(events) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.config.PollInterval):
			}
			continue
		}

		for _, event := range events {
			if event == nil {
				continue
			}
			// A cancelled wait drops the rest of the batch; the journal has
			// already handed it over.
			if err := limiter.Wait(ctx); err != nil {
				log.Printf("[DRAINER] WARNING: Dropping undrained events after shutdown: %v", err)
				return
			}
			d.processed.Add(1)
			if err := d.handler(ctx, event); err != nil {
				d.failed.Add(1)
				log.Printf("[DRAINER] ERROR: Handler failed for %s on %s %v: %v", event.Operation, event.Table, event.Key, err)
			}
		}
	}
}
