// Package events fans formatted node events out to subscribers, each of
// which may narrow what it receives by message prefix.
package events

import (
	"fmt"
	"strings"
	"sync"
)

// subscriberBuffer is how far a subscriber may fall behind before messages
// are dropped for it.
const subscriberBuffer = 100

type subscriber struct {
	ch       chan string
	prefixes []string
	dropped  uint64
}

func (sub *subscriber) wants(msg string) bool {
	if len(sub.prefixes) == 0 {
		return true
	}

	for _, prefix := range sub.prefixes {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}

	return false
}

// Events is a registry of subscribers keyed by id. Delivery never blocks
// the sender.
type Events struct {
	mu     sync.Mutex
	subs   map[string]*subscriber
	closed bool
}

// New constructs an empty registry.
func New() *Events {
	return &Events{
		subs: make(map[string]*subscriber),
	}
}

// Acquire subscribes the id and returns the channel its messages arrive on.
// With prefixes only matching messages are delivered. A known id keeps its
// channel and filter. After Shutdown the returned channel is already closed.
func (evt *Events) Acquire(id string, prefixes ...string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if sub, exists := evt.subs[id]; exists {
		return sub.ch
	}

	ch := make(chan string, subscriberBuffer)
	if evt.closed {
		close(ch)
		return ch
	}

	evt.subs[id] = &subscriber{ch: ch, prefixes: prefixes}

	return ch
}

// Release unsubscribes the id and closes its channel.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	sub, exists := evt.subs[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.subs, id)
	close(sub.ch)

	return nil
}

// Shutdown releases every subscriber and refuses new ones.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	evt.closed = true
	for id, sub := range evt.subs {
		delete(evt.subs, id)
		close(sub.ch)
	}
}

// Count returns the number of subscribers.
func (evt *Events) Count() int {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	return len(evt.subs)
}

// Dropped returns how many messages the id missed because its channel was
// full.
func (evt *Events) Dropped(id string) uint64 {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if sub, exists := evt.subs[id]; exists {
		return sub.dropped
	}
	return 0
}

// Send delivers the message to every subscriber whose filter accepts it.
func (evt *Events) Send(msg string) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for _, sub := range evt.subs {
		if !sub.wants(msg) {
			continue
		}

		select {
		case sub.ch <- msg:
		default:
			sub.dropped++
		}
	}
}

// Handler adapts the registry to the func(v string, args ...any) event
// handlers the node uses. Only events starting with one of the prefixes are
// formatted and sent. No prefixes sends everything.
func (evt *Events) Handler(prefixes ...string) func(v string, args ...any) {
	filter := subscriber{prefixes: prefixes}

	return func(v string, args ...any) {
		if s := fmt.Sprintf(v, args...); filter.wants(s) {
			evt.Send(s)
		}
	}
}
