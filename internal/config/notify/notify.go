// Package notify provides the config-changed notification.
//
// Observers subscribe with a callback and are called synchronously, in
// subscription order, every time Notify is invoked. The notification
// carries no payload: observers fetch the new configuration themselves.
package notify

import (
	"sync"
)

// Observer is called when the configuration changed.
type Observer func()

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

type entry struct {
	id       uint64
	observer Observer
}

// Notifier manages config-changed subscriptions.
type Notifier struct {
	mu sync.RWMutex

	observers []entry

	// Next subscription ID
	nextID uint64

	closed bool
}

// New creates a new Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers an observer.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.observers = append(n.observers, entry{id: id, observer: observer})

	return &Subscription{id: id, notifier: n}
}

// Notify calls every observer. Observers run outside the lock, so they
// may subscribe or unsubscribe; those changes apply from the next Notify.
// It returns the number of observers called.
func (n *Notifier) Notify() int {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return 0
	}
	observers := make([]Observer, len(n.observers))
	for i, e := range n.observers {
		observers[i] = e.observer
	}
	n.mu.RUnlock()

	for _, obs := range observers {
		obs()
	}
	return len(observers)
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.observers)
}

// Close drops all subscriptions; later Notify calls do nothing.
// It is safe to call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.observers = nil
}

// unsubscribe removes an observer by ID.
func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, e := range n.observers {
		if e.id == id {
			n.observers = append(n.observers[:i:i], n.observers[i+1:]...)
			return
		}
	}
}
