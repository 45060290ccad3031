package events

import "testing"

func TestBusDelivers(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe()
	defer cancel()

	sent := New(TypeInvoiceCreated, 7, 42)
	b.Publish(sent)

	got := <-ch
	if got.ID != sent.ID || got.Type != TypeInvoiceCreated || got.RoomID != 7 || got.InvoiceID != 42 {
		t.Fatalf("received %+v, want %+v", got, sent)
	}
}

func TestBusFanOut(t *testing.T) {
	b := NewBus()
	ch1, cancel1 := b.Subscribe()
	defer cancel1()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	b.Publish(New(TypeRoomDeleted, 7, 0))

	if e := <-ch1; e.Type != TypeRoomDeleted {
		t.Fatalf("subscriber 1 got %s", e.Type)
	}
	if e := <-ch2; e.Type != TypeRoomDeleted {
		t.Fatalf("subscriber 2 got %s", e.Type)
	}
}

func TestBusCancelStopsDelivery(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe()
	cancel()

	// Channel is closed after cancel
	if _, open := <-ch; open {
		t.Fatal("channel still open after cancel")
	}

	// Publishing after cancel must not panic
	b.Publish(New(TypeInvoiceUpdated, 1, 1))
}

func TestBusNonBlockingWhenFull(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish(New(TypeInvoiceCreated, int64(i), 0))
	}

	// Buffer holds exactly subscriberBuffer events, the rest were dropped
	if len(ch) != subscriberBuffer {
		t.Fatalf("buffered %d events, want %d", len(ch), subscriberBuffer)
	}
}
