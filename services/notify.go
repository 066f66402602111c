package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/Kyy487/ruangcerita/logger"
)

// ChangeEvent tells other contexts that a substrate key was rewritten.
// It never carries a diff; receivers reload the whole key.
type ChangeEvent struct {
	Key      string `json:"key"`
	NewValue string `json:"new_value"`
	OldValue string `json:"old_value"`
	Origin   string `json:"origin"`
}

type Handler func(ChangeEvent)

// Notifier propagates ChangeEvents between contexts. Delivery is asynchronous
// and best-effort; a subscriber never sees events published with its own origin.
type Notifier interface {
	Publish(ctx context.Context, ev ChangeEvent) error
	// Subscribe binds handler to key until the returned Subscription is closed.
	// An empty key matches every key.
	Subscribe(key, origin string, handler Handler) *Subscription
	Close() error
}

type Subscription struct {
	bus     *Bus
	id      uint64
	key     string
	origin  string
	handler Handler
	queue   chan ChangeEvent
	done    chan struct{}
	once    sync.Once
}

func (s *Subscription) matches(ev ChangeEvent) bool {
	if s.key != "" && s.key != ev.Key {
		return false
	}
	return s.origin == "" || s.origin != ev.Origin
}

func (s *Subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.queue:
			select {
			case <-s.done:
				return
			default:
			}
			s.deliver(ev)
		}
	}
}

func (s *Subscription) deliver(ev ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("key", ev.Key).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("change handler panicked")
		}
	}()
	s.handler(ev)
	notificationsDelivered.WithLabelValues(keyLabel(ev.Key)).Inc()
}

// Close releases the binding. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s.id)
		close(s.done)
	})
}

// Bus is the in-process Notifier. Remote notifiers feed it with events
// received from their broker.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
	}
}

func (b *Bus) Publish(_ context.Context, ev ChangeEvent) error {
	b.dispatch(ev)
	return nil
}

func (b *Bus) dispatch(ev ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !sub.matches(ev) {
			continue
		}
		select {
		case sub.queue <- ev:
		default:
			notificationsDropped.WithLabelValues(keyLabel(ev.Key)).Inc()
			logger.Warn().
				Str("key", ev.Key).
				Str("subscriber", sub.origin).
				Msg("change notification dropped, subscriber queue full")
		}
	}
}

func (b *Bus) Subscribe(key, origin string, handler Handler) *Subscription {
	b.mu.Lock()
	b.nextID++
	sub := &Subscription{
		bus:     b,
		id:      b.nextID,
		key:     key,
		origin:  origin,
		handler: handler,
		queue:   make(chan ChangeEvent, b.buffer),
		done:    make(chan struct{}),
	}
	b.subs[sub.id] = sub
	b.mu.Unlock()

	go sub.run()
	return sub
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Close releases every remaining subscription.
func (b *Bus) Close() error {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.Close()
	}
	return nil
}
