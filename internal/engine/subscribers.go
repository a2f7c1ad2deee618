package engine

import (
	"fmt"
	"log/slog"
	"sync"
)

// Subscriber receives every completed result. A returned error is logged and
// does not affect delivery to other subscribers.
type Subscriber func(Result) error

// #region broadcaster

// broadcaster fans results out to registered subscribers in registration order.
type broadcaster struct {
	mu     sync.RWMutex
	nextID uint64
	order  []uint64
	subs   map[uint64]Subscriber
	logger *slog.Logger
}

func newBroadcaster(logger *slog.Logger) *broadcaster {
	return &broadcaster{
		subs:   make(map[uint64]Subscriber),
		logger: logger,
	}
}

// add registers fn and returns an idempotent removal func.
func (b *broadcaster) add(fn Subscriber) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *broadcaster) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

func (b *broadcaster) len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// publish delivers res to a snapshot of the current subscribers.
func (b *broadcaster) publish(res Result) {
	b.mu.RLock()
	handlers := make([]Subscriber, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.subs[id])
	}
	b.mu.RUnlock()

	for i, h := range handlers {
		if err := deliver(h, res.clone()); err != nil {
			b.logger.Warn("subscriber failed",
				"run_id", res.RunID, "subscriber", i, "err", err)
		}
	}
}

// deliver calls h, converting a panic into an error.
func deliver(h Subscriber, res Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return h(res)
}

// #endregion broadcaster
