package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking. Otherwise Emit waits for buffer space, the
	// caller's context or Close.
	DropIfFull bool
	// Logger receives drop warnings and recovered sink panics. Nil discards them.
	Logger *zap.Logger
}

// Dispatcher relays events to a Sink from a single background goroutine, so the sink
// sees events in Emit order. A nil *Dispatcher is valid and ignores every call.
type Dispatcher struct {
	sink       Sink
	logger     *zap.Logger
	dropIfFull bool

	queue    chan Event
	stop     chan struct{}
	finished sync.WaitGroup
	stopOnce sync.Once
	stopping atomic.Bool

	dropped    atomic.Uint64
	sinkPanics atomic.Uint64
}

// NewDispatcher starts the relay goroutine. It returns nil when cfg.Enabled is false.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}

	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		sink:       sink,
		logger:     logger.Named("audit"),
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, size),
		stop:       make(chan struct{}),
	}

	d.finished.Add(1)
	go d.relay()

	return d
}

func (d *Dispatcher) relay() {
	defer d.finished.Done()

	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain delivers what is already buffered. Events that lose the race with Close are
// not waited for.
func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.sinkPanics.Add(1)
			d.logger.Error("audit sink panicked", zap.String("event_type", ev.EventType), zap.Any("panic", r))
		}
	}()
	d.sink.Emit(context.Background(), ev)
}

// Emit queues ev. After Close it is a no-op.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.stopping.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.queue <- ev:
		case <-d.stop:
		default:
			d.recordDrop(ev)
		}
		return
	}

	select {
	case d.queue <- ev:
	case <-ctx.Done():
		d.recordDrop(ev)
	case <-d.stop:
	}
}

// recordDrop counts a lost event and warns on the first drop and every power of two
// after it.
func (d *Dispatcher) recordDrop(ev Event) {
	n := d.dropped.Add(1)
	if n&(n-1) == 0 {
		d.logger.Warn("audit buffer full, events dropped",
			zap.Uint64("dropped_total", n),
			zap.String("event_type", ev.EventType),
		)
	}
}

// Close stops accepting events, flushes the buffer and waits for the relay to exit.
// It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.stopping.Store(true)
		close(d.stop)
		d.finished.Wait()
	})
}

// Dropped returns the number of events that never reached the sink because the buffer
// was full or the caller's context ended first.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// SinkPanics returns how many deliveries panicked inside the sink.
func (d *Dispatcher) SinkPanics() uint64 {
	if d == nil {
		return 0
	}
	return d.sinkPanics.Load()
}
