// Package notification delivers transfer events to the message broker
// without ever blocking the code that emits them. Events are queued in a
// bounded buffer; when it is full the event is dropped and counted.
package notification

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"paycore/internal/models"

	"github.com/rs/zerolog"
)

const (
	DefaultBufferSize     = 1024
	DefaultPublishTimeout = 5 * time.Second
)

// Dispatcher queues transfer events and publishes them from one goroutine.
type Dispatcher struct {
	publisher Publisher
	events    chan models.TransferEvent
	timeout   time.Duration
	log       zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewDispatcher starts a dispatcher publishing through publisher.
func NewDispatcher(publisher Publisher, bufferSize int, log zerolog.Logger) *Dispatcher {
	if publisher == nil {
		panic("publisher is required")
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	d := &Dispatcher{
		publisher: publisher,
		events:    make(chan models.TransferEvent, bufferSize),
		timeout:   DefaultPublishTimeout,
		log:       log.With().Str("component", "dispatcher").Logger(),
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

// Emit queues event. It never blocks.
func (d *Dispatcher) Emit(_ context.Context, event models.TransferEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn().Str("type", event.Type).Str("transfer_id", event.TransferID).Msg("dispatcher closed, event dropped")
		d.dropped.Add(1)
		return
	}

	select {
	case d.events <- event:
	default:
		d.dropped.Add(1)
		d.log.Warn().Str("type", event.Type).Str("transfer_id", event.TransferID).Msg("event buffer full, event dropped")
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for event := range d.events {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.publisher.Publish(ctx, event.Type, event); err != nil {
			d.failed.Add(1)
			d.log.Error().Err(err).Str("type", event.Type).Str("transfer_id", event.TransferID).Msg("failed to publish event")
		}
		cancel()
	}
}

// Close stops accepting events and waits until the buffer is drained or
// ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns how many events were discarded.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Failed returns how many publishes returned an error.
func (d *Dispatcher) Failed() int64 { return d.failed.Load() }
