// Path: internal/events/broker.go
package events

import "sync"

// Topics published by the page.
const (
	// TopicPatch carries a page.Patch for every document region change.
	TopicPatch = "document:patch"
	// TopicFavoriteToggled carries a FavoriteToggled after every favorites mutation.
	TopicFavoriteToggled = "favorites:toggled"
)

// FavoriteToggled is published when a recipe enters or leaves the favorites set.
type FavoriteToggled struct {
	ID       int
	Favorite bool
	Count    int
}

// Event represents a message passed through the broker.
type Event struct {
	Topic string
	Data  any
}

// Broker implements a simple in-memory pub/sub system.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
	bufferSize  int

	lagMu  sync.Mutex
	lagged map[<-chan Event]bool
}

// NewBroker creates a new event broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[string][]chan Event),
		bufferSize:  64,
		lagged:      make(map[<-chan Event]bool),
	}
}

// Subscribe creates a new subscription to a topic.
// It returns a read-only channel where events for that topic will be sent.
func (b *Broker) Subscribe(topic string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize) // Buffered channel to prevent blocking publishers
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(topic string, sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[topic]
	for i, ch := range subs {
		if ch == sub {
			b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			close(ch)
			b.lagMu.Lock()
			delete(b.lagged, sub)
			b.lagMu.Unlock()
			return
		}
	}
}

// Publish sends an event to all subscribers of a topic.
func (b *Broker) Publish(topic string, data any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	event := Event{Topic: topic, Data: data}
	if subscribers, found := b.subscribers[topic]; found {
		for _, ch := range subscribers {
			// Non-blocking send
			select {
			case ch <- event:
			default:
				// Subscriber is not ready, drop the event to avoid blocking.
				b.lagMu.Lock()
				b.lagged[ch] = true
				b.lagMu.Unlock()
			}
		}
	}
}

// Lagged reports whether events were dropped for sub since the last call,
// and clears the mark.
func (b *Broker) Lagged(sub <-chan Event) bool {
	b.lagMu.Lock()
	defer b.lagMu.Unlock()
	lagged := b.lagged[sub]
	delete(b.lagged, sub)
	return lagged
}
