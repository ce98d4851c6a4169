package lifecycle

import "sync"

// Listener receives canonical events from a Bus.
type Listener func(Event)

// Bus is a per-request publish/subscribe channel for canonical events.
//
// Replay: if a kind was already published when a listener subscribes, the
// listener is immediately invoked with the last payload for that kind. This
// closes the race where an adapter fires before the tracker attaches.
//
// Listeners for one kind run in subscription order. Dispatch holds the bus
// lock, so per-request event order is preserved even when transport hooks
// fire from different goroutines, and listeners must not publish back into
// the same bus. There is no ordering guarantee across different requests'
// buses.
type Bus struct {
	mu        sync.Mutex
	nextSub   int
	listeners [kindCount][]subscription
	last      [kindCount]Event
	fired     [kindCount]bool
}

type subscription struct {
	id int
	fn Listener
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a listener for one kind and returns its unsubscribe
// function. If the kind already fired, the listener is invoked immediately
// with the last payload.
func (b *Bus) Subscribe(k Kind, fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSub
	b.nextSub++
	b.listeners[k] = append(b.listeners[k], subscription{id: id, fn: fn})

	if b.fired[k] {
		fn(b.last[k])
	}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.listeners[k]
		for i, s := range subs {
			if s.id == id {
				b.listeners[k] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// SubscribeAll registers one listener for every kind and returns a single
// unsubscribe function covering all of them.
func (b *Bus) SubscribeAll(fn Listener) (unsubscribe func()) {
	unsubs := make([]func(), 0, int(kindCount))
	for k := Kind(0); k < kindCount; k++ {
		unsubs = append(unsubs, b.Subscribe(k, fn))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Publish delivers an event to every listener of its kind and records it for
// replay to late subscribers.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.last[ev.Kind] = ev
	b.fired[ev.Kind] = true
	for _, s := range b.listeners[ev.Kind] {
		s.fn(ev)
	}
}

// Fired reports whether a kind has been published at least once.
func (b *Bus) Fired(k Kind) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fired[k]
}
