package amqp

import (
	"encoding/json"
	"time"
)

// InvoiceSyncMessage asks a worker to export one invoice. It carries
// only the ids; the worker reads the invoice from the store, so a stale
// message always exports the freshest data.
type InvoiceSyncMessage struct {
	RoomID    int64     `json:"roomId"`
	InvoiceID int64     `json:"invoiceId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewInvoiceSyncMessage(roomID, invoiceID int64) *InvoiceSyncMessage {
	return &InvoiceSyncMessage{
		RoomID:    roomID,
		InvoiceID: invoiceID,
		Timestamp: time.Now(),
	}
}

func (m *InvoiceSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func InvoiceSyncMessageFromJSON(data []byte) (*InvoiceSyncMessage, error) {
	var msg InvoiceSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
