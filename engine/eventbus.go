package engine

import (
	"context"
	"log/slog"
	"sync"

	"xplist/core"
)

type DispatchMode int

const (
	DispatchSync DispatchMode = iota
	DispatchAsync
)

const (
	defaultQueueSize    = 1024
	defaultAsyncWorkers = 2
)

type subscription struct {
	id int64
	fn func(context.Context, core.Event)
}

// EventBus provides thread-safe pub/sub with sync and async dispatch.
type EventBus struct {
	mode    DispatchMode
	mu      sync.RWMutex
	subs    map[core.EventType]map[int64]subscription
	nextID  int64
	queue   chan core.Event
	workers sync.WaitGroup
	done    chan struct{}
	once    sync.Once
	logger  *slog.Logger
}

// BusOption tunes an EventBus.
type BusOption func(*busSettings)

type busSettings struct {
	queueSize int
	workers   int
	logger    *slog.Logger
}

// WithQueueSize sets the async queue capacity.
func WithQueueSize(n int) BusOption {
	return func(s *busSettings) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithWorkers sets the number of async dispatch goroutines.
func WithWorkers(n int) BusOption {
	return func(s *busSettings) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithBusLogger sets the logger used to report dropped events.
func WithBusLogger(l *slog.Logger) BusOption {
	return func(s *busSettings) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewEventBus(mode DispatchMode, opts ...BusOption) *EventBus {
	st := busSettings{queueSize: defaultQueueSize, workers: defaultAsyncWorkers, logger: slog.Default()}
	for _, o := range opts {
		o(&st)
	}
	eb := &EventBus{
		mode:   mode,
		subs:   make(map[core.EventType]map[int64]subscription),
		done:   make(chan struct{}),
		logger: st.logger,
	}
	if mode == DispatchAsync {
		eb.queue = make(chan core.Event, st.queueSize)
		for i := 0; i < st.workers; i++ {
			eb.workers.Add(1)
			go eb.work()
		}
	}
	return eb
}

func (e *EventBus) work() {
	defer e.workers.Done()
	for {
		select {
		case ev := <-e.queue:
			e.dispatch(context.Background(), ev)
		case <-e.done:
			// deliver whatever is already queued before exiting
			for {
				select {
				case ev := <-e.queue:
					e.dispatch(context.Background(), ev)
				default:
					return
				}
			}
		}
	}
}

// Close stops async workers after they drain the queue. Safe to call twice.
func (e *EventBus) Close() {
	e.once.Do(func() { close(e.done) })
	e.workers.Wait()
}

// Subscribe registers a handler for an event type. Returns unsubscribe func.
func (e *EventBus) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	if e.subs[typ] == nil {
		e.subs[typ] = make(map[int64]subscription)
	}
	e.subs[typ][id] = subscription{id: id, fn: handler}
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if m := e.subs[typ]; m != nil {
			delete(m, id)
		}
	}
}

// Publish sends an event to subscribers. In async mode a full queue drops the event.
func (e *EventBus) Publish(ctx context.Context, ev core.Event) {
	if e.mode != DispatchAsync {
		e.dispatch(ctx, ev)
		return
	}
	select {
	case <-e.done:
		e.logger.Warn("event bus closed, dropping event", "type", ev.Type, "user", ev.UserID)
		return
	default:
	}
	select {
	case e.queue <- ev:
	default:
		e.logger.Warn("event queue full, dropping event", "type", ev.Type, "user", ev.UserID)
	}
}

func (e *EventBus) dispatch(ctx context.Context, ev core.Event) {
	e.mu.RLock()
	subs := e.subs[ev.Type]
	// copy to avoid holding lock during callbacks
	handlers := make([]func(context.Context, core.Event), 0, len(subs))
	for _, s := range subs {
		handlers = append(handlers, s.fn)
	}
	e.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, ev)
	}
}
