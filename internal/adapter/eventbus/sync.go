// Package eventbus provides the in-process event bus used to fan controller
// state changes out to views and loggers.
package eventbus

import (
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

// ErrClosed is returned by Close when the bus was already closed.
var ErrClosed = errors.New("event bus already closed")

// SyncEventBus delivers events synchronously on the publishing goroutine.
//
// Handlers for one event type run in subscription order, followed by the
// wildcard handlers. Because delivery is synchronous, the order in which the
// controller publishes is the order every subscriber observes.
//
// Thread-safety: safe for concurrent Publish, Subscribe and Unsubscribe.
// Handlers run without the bus lock held, so a handler may subscribe or
// unsubscribe (the change takes effect from the next Publish).
type SyncEventBus struct {
	logger *slog.Logger

	mu             sync.RWMutex
	subscribers    map[domain.EventType][]subscription
	allSubscribers []subscription
	closed         bool

	idCounter atomic.Uint64
	published atomic.Uint64
	panics    atomic.Uint64
}

type subscription struct {
	id      domain.SubscriptionID
	handler domain.EventHandler
}

// NewSyncEventBus creates a new synchronous event bus.
// A nil logger discards handler diagnostics.
func NewSyncEventBus(logger *slog.Logger) *SyncEventBus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SyncEventBus{
		logger:      logger.With(slog.String("component", "eventbus")),
		subscribers: make(map[domain.EventType][]subscription),
	}
}

// Publish delivers event to the handlers subscribed to its type and to every
// wildcard handler. Publishing on a closed bus or publishing nil is a no-op.
//
// A panicking handler is recovered and logged; remaining handlers still run.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}
	targets := make([]subscription, 0, len(bus.subscribers[event.Type()])+len(bus.allSubscribers))
	targets = append(targets, bus.subscribers[event.Type()]...)
	targets = append(targets, bus.allSubscribers...)
	bus.mu.RUnlock()

	bus.published.Add(1)
	for _, sub := range targets {
		bus.deliver(sub, event)
	}
}

func (bus *SyncEventBus) deliver(sub subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			bus.panics.Add(1)
			bus.logger.Error("event handler panicked",
				slog.Any("panic", r),
				slog.String("event_type", string(event.Type())),
				slog.String("subscription", string(sub.id)))
		}
	}()
	sub.handler(event)
}

// Subscribe registers handler for events of eventType.
// It panics on a nil handler or a closed bus, both of which are programming errors.
func (bus *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("eventbus: nil handler")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if bus.closed {
		panic("eventbus: subscribe on closed bus")
	}

	id := bus.nextID(string(eventType))
	bus.subscribers[eventType] = append(bus.subscribers[eventType], subscription{id: id, handler: handler})
	return id
}

// SubscribeAll registers handler for every event type.
func (bus *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("eventbus: nil handler")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if bus.closed {
		panic("eventbus: subscribe on closed bus")
	}

	id := bus.nextID("*")
	bus.allSubscribers = append(bus.allSubscribers, subscription{id: id, handler: handler})
	return id
}

func (bus *SyncEventBus) nextID(scope string) domain.SubscriptionID {
	n := bus.idCounter.Add(1)
	return domain.SubscriptionID(scope + "#" + strconv.FormatUint(n, 10))
}

// Unsubscribe removes a subscription. Unknown IDs are ignored.
// The relative order of the remaining handlers is preserved.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	match := func(s subscription) bool { return s.id == id }

	for eventType, subs := range bus.subscribers {
		if i := slices.IndexFunc(subs, match); i >= 0 {
			// Clone so an in-flight Publish keeps its own snapshot intact.
			remaining := slices.Delete(slices.Clone(subs), i, i+1)
			if len(remaining) == 0 {
				delete(bus.subscribers, eventType)
			} else {
				bus.subscribers[eventType] = remaining
			}
			return
		}
	}

	if i := slices.IndexFunc(bus.allSubscribers, match); i >= 0 {
		bus.allSubscribers = slices.Delete(slices.Clone(bus.allSubscribers), i, i+1)
	}
}

// HasSubscribers reports whether publishing eventType would reach any handler.
func (bus *SyncEventBus) HasSubscribers(eventType domain.EventType) bool {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.subscribers[eventType]) > 0 || len(bus.allSubscribers) > 0
}

// Close drops every subscription. Later Publish calls are no-ops.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return ErrClosed
	}
	bus.closed = true
	bus.subscribers = make(map[domain.EventType][]subscription)
	bus.allSubscribers = nil

	bus.logger.Debug("event bus closed",
		slog.Uint64("published", bus.published.Load()),
		slog.Uint64("handler_panics", bus.panics.Load()))
	return nil
}

// SubscriberCount returns the number of active subscriptions, wildcard included.
func (bus *SyncEventBus) SubscriberCount() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	count := len(bus.allSubscribers)
	for _, subs := range bus.subscribers {
		count += len(subs)
	}
	return count
}

// Stats returns the number of published events and recovered handler panics.
func (bus *SyncEventBus) Stats() (published, panics uint64) {
	return bus.published.Load(), bus.panics.Load()
}

// On subscribes a handler typed to the concrete event struct E.
// Events of eventType that are not an E are dropped.
func On[E domain.Event](bus ports.EventBus, eventType domain.EventType, handler func(E)) domain.SubscriptionID {
	return bus.Subscribe(eventType, func(event domain.Event) {
		if e, ok := event.(E); ok {
			handler(e)
		}
	})
}

var _ ports.EventBus = (*SyncEventBus)(nil)
