// Package events provides an in-process change bus so interested
// components react to mutations without polling the store.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeInvoiceCreated Type = "invoice.created"
	TypeInvoiceUpdated Type = "invoice.updated"
	TypeInvoiceDeleted Type = "invoice.deleted"
	TypeStatusChanged  Type = "invoice.status_changed"
	TypeMembersChanged Type = "room.members_changed"
	TypeRoomDeleted    Type = "room.deleted"
)

// Event describes one committed mutation. InvoiceID is zero for
// room-level events.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Type      Type      `json:"type"`
	RoomID    int64     `json:"roomId"`
	InvoiceID int64     `json:"invoiceId,omitempty"`
	At        time.Time `json:"at"`
}

func New(t Type, roomID, invoiceID int64) Event {
	return Event{
		ID:        uuid.New(),
		Type:      t,
		RoomID:    roomID,
		InvoiceID: invoiceID,
		At:        time.Now().UTC(),
	}
}

const subscriberBuffer = 64

// Bus fans events out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber. The returned cancel function
// removes the subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber with buffer space.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			slog.Warn("Dropping event for slow subscriber",
				"event_type", string(e.Type),
				"room_id", e.RoomID)
		}
	}
}
