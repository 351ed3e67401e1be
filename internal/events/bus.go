// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrBusClosed  = errors.New("event bus is shutting down")
	ErrBufferFull = errors.New("event channel full")
)

// Bus is an in-memory event bus. Published events are delivered by a single worker in
// the order they were published, so subscribers see market operations in commit order.
type Bus struct {
	mu         sync.RWMutex
	handlers   map[EventType]map[string]Handler
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	stopped    chan struct{}
	eventChan  chan Event
	bufferSize int

	statsMu   sync.Mutex
	delivered uint64
	dropped   uint64
	failed    uint64
}

// NewBus creates a new event bus and starts its delivery worker.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	bus := &Bus{
		handlers:   make(map[EventType]map[string]Handler),
		logger:     logger.Named("event_bus"),
		ctx:        ctx,
		cancel:     cancel,
		eventChan:  make(chan Event, bufferSize),
		bufferSize: bufferSize,
		stopped:    make(chan struct{}),
	}

	bus.wg.Add(1)
	go bus.processEvents()

	return bus
}

// Subscribe registers a handler for a specific event type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]Handler)
	}
	b.handlers[eventType][id] = handler

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))

	return &subscription{id: id, eventBus: b, types: []EventType{eventType}}
}

// SubscribeFunc is a convenience method for subscribing with a function.
func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

// SubscribeAll registers one handler for several event types under a single subscription.
func (b *Bus) SubscribeAll(handler Handler, eventTypes ...EventType) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	for _, t := range eventTypes {
		if b.handlers[t] == nil {
			b.handlers[t] = make(map[string]Handler)
		}
		b.handlers[t][id] = handler
	}

	b.logger.Debug("Handler subscribed",
		zap.Int("event_types", len(eventTypes)),
		zap.String("subscription_id", id))

	return &subscription{id: id, eventBus: b, types: eventTypes}
}

// Publish queues an event for asynchronous delivery. It never blocks: when the buffer is
// full the event is dropped and ErrBufferFull returned.
func (b *Bus) Publish(event Event) error {
	select {
	case <-b.ctx.Done():
		return ErrBusClosed
	default:
	}

	select {
	case b.eventChan <- event:
		return nil
	default:
		b.countDropped()
		b.logger.Warn("Event channel full, dropping event",
			zap.String("event_type", string(event.Type())))
		return fmt.Errorf("%w: %s", ErrBufferFull, event.Type())
	}
}

// PublishSync delivers an event to all registered handlers on the calling goroutine.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := b.handlers[event.Type()]
	handlersCopy := make(map[string]Handler, len(handlers))
	for id, h := range handlers {
		handlersCopy[id] = h
	}
	b.mu.RUnlock()

	var errs []error
	for id, handler := range handlersCopy {
		if err := handler.Handle(ctx, event); err != nil {
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.String("handler_id", id),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	b.countDelivery(len(errs) > 0)

	if len(errs) > 0 {
		return fmt.Errorf("handlers failed: %w", errors.Join(errs...))
	}
	return nil
}

func (b *Bus) processEvents() {
	defer b.wg.Done()
	defer close(b.stopped)

	for {
		select {
		case <-b.ctx.Done():
			// Drain remaining events
			for {
				select {
				case event := <-b.eventChan:
					if f, ok := event.(*flushMarker); ok {
						close(f.done)
						continue
					}
					_ = b.PublishSync(context.Background(), event)
				default:
					return
				}
			}
		case event := <-b.eventChan:
			if f, ok := event.(*flushMarker); ok {
				close(f.done)
				continue
			}
			if err := b.PublishSync(b.ctx, event); err != nil {
				b.logger.Error("Failed to process event",
					zap.String("event_type", string(event.Type())),
					zap.Error(err))
			}
		}
	}
}

// flushMarker is queued by Flush and never reaches handlers.
type flushMarker struct {
	BaseEvent
	done chan struct{}
}

// Flush waits until every event published before the call has been delivered.
func (b *Bus) Flush(ctx context.Context) error {
	select {
	case <-b.ctx.Done():
		return ErrBusClosed
	default:
	}

	marker := &flushMarker{done: make(chan struct{})}
	select {
	case <-b.ctx.Done():
		return ErrBusClosed
	case b.eventChan <- marker:
	case <-ctx.Done():
		return ctx.Err()
	}
	return b.awaitFlush(ctx, marker)
}

// awaitFlush waits for the worker to reach marker. A marker queued after the drain loop
// has returned is never reached.
func (b *Bus) awaitFlush(ctx context.Context, marker *flushMarker) error {
	select {
	case <-marker.done:
		return nil
	case <-b.stopped:
		select {
		case <-marker.done:
			return nil
		default:
			return ErrBusClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) unsubscribe(id string, eventTypes []EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, eventType := range eventTypes {
		if handlers, ok := b.handlers[eventType]; ok {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(b.handlers, eventType)
			}
		}
	}

	b.logger.Debug("Handler unsubscribed", zap.String("subscription_id", id))
}

// Shutdown stops accepting events, delivers what is queued and waits for the worker.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.logger.Info("Shutting down event bus")
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus shutdown complete")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timeout")
		return ctx.Err()
	}
}

func (b *Bus) countDelivery(failed bool) {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	b.delivered++
	if failed {
		b.failed++
	}
}

func (b *Bus) countDropped() {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	b.dropped++
}

// Stats is a snapshot of bus activity.
type Stats struct {
	BufferSize      int
	Pending         int
	Delivered       uint64
	Dropped         uint64
	Failed          uint64
	HandlersPerType map[EventType]int
}

// Stats returns statistics about the event bus.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	perType := make(map[EventType]int, len(b.handlers))
	for eventType, handlers := range b.handlers {
		perType[eventType] = len(handlers)
	}
	b.mu.RUnlock()

	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	return Stats{
		BufferSize:      b.bufferSize,
		Pending:         len(b.eventChan),
		Delivered:       b.delivered,
		Dropped:         b.dropped,
		Failed:          b.failed,
		HandlersPerType: perType,
	}
}
