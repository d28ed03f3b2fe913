// Package notifier fans store snapshots out to subscribers.
package notifier

import (
	"sort"
	"sync"
)

// Notifier holds subscriber callbacks for snapshots of type T.
// The zero value is ready to use.
type Notifier[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

// Subscribe registers fn and returns a func that removes it. Cancel is
// safe to call more than once.
func (n *Notifier[T]) Subscribe(fn func(T)) (cancel func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func(T))
	}
	id := n.next
	n.next++
	n.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Notify calls every subscriber with v, in subscription order. Callbacks
// run outside the notifier's lock so they may subscribe or cancel.
func (n *Notifier[T]) Notify(v T) {
	n.mu.Lock()
	ids := make([]int, 0, len(n.subs))
	for id := range n.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, n.subs[id])
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of active subscribers.
func (n *Notifier[T]) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
