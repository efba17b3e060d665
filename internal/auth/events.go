package auth

import "sync"

// EventType names an auth-state transition.
type EventType string

const (
	EventSignedIn           EventType = "signed_in"
	EventSignedOut          EventType = "signed_out"
	EventPermissionsChanged EventType = "permissions_changed"
	EventUserDeleted        EventType = "user_deleted"
)

// Event is delivered to every subscriber of a Broker.
type Event struct {
	Type      EventType
	UserID    int64
	SessionID string
}

type subscription struct {
	id int
	fn func(Event)
}

// Broker fans auth-state changes out to in-process listeners.
// Delivery is synchronous and in subscription order.
type Broker struct {
	mu   sync.RWMutex
	next int
	subs []subscription
}

func NewBroker() *Broker { return &Broker{} }

// Subscribe registers fn and returns a function that removes it.
func (b *Broker) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	b.next++
	id := b.next
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e to the current subscribers.
func (b *Broker) Publish(e Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(e)
	}
}

// PermissionsChanged publishes EventPermissionsChanged for userID.
func (b *Broker) PermissionsChanged(userID int64) {
	b.Publish(Event{Type: EventPermissionsChanged, UserID: userID})
}

// UserDeleted publishes EventUserDeleted for userID.
func (b *Broker) UserDeleted(userID int64) {
	b.Publish(Event{Type: EventUserDeleted, UserID: userID})
}
