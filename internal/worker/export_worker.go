// Package worker turns invoice sync messages into exports.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"sharinghome/internal/amqp"
	"sharinghome/internal/export"
	"sharinghome/internal/ledger"
	"sharinghome/internal/rooms"
)

// ExportWorker reads the referenced invoice from the store and hands it
// to the exporter. Messages carry ids only, so the worker always exports
// the invoice as it is now, not as it was when the message was queued.
type ExportWorker struct {
	ledger   *ledger.Ledger
	rooms    *rooms.Manager
	exporter export.InvoiceExporter
}

func NewExportWorker(l *ledger.Ledger, r *rooms.Manager, exporter export.InvoiceExporter) *ExportWorker {
	return &ExportWorker{
		ledger:   l,
		rooms:    r,
		exporter: exporter,
	}
}

// HandleSyncMessage processes one invoice sync message.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.InvoiceSyncMessage) error {
	room, err := w.rooms.Room(ctx, msg.RoomID)
	if err != nil {
		return fmt.Errorf("load room: %w", err)
	}
	invoice, err := w.ledger.Invoice(ctx, msg.RoomID, msg.InvoiceID)
	if err != nil {
		return fmt.Errorf("load invoice: %w", err)
	}
	members, err := w.rooms.Members(ctx, msg.RoomID)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}

	ref, err := w.exporter.ExportInvoice(ctx, room, invoice, members)
	if err != nil {
		return fmt.Errorf("export invoice: %w", err)
	}

	slog.InfoContext(ctx, "Invoice exported",
		"room_id", msg.RoomID,
		"invoice_id", msg.InvoiceID,
		"export_ref", ref)
	return nil
}
