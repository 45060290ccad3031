package amqp

import "testing"

func TestInvoiceSyncMessageJSON(t *testing.T) {
	msg := NewInvoiceSyncMessage(7, 42)
	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := InvoiceSyncMessageFromJSON(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.RoomID != 7 || got.InvoiceID != 42 {
		t.Fatalf("round trip gave %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Fatal("timestamp lost")
	}
}

func TestInvoiceSyncMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := InvoiceSyncMessageFromJSON([]byte("not json")); err == nil {
		t.Fatal("garbage accepted")
	}
}
