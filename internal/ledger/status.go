package ledger

import (
	"context"
	"fmt"

	"sharinghome/internal/core"
	"sharinghome/internal/events"
	"sharinghome/internal/kv"
	"sharinghome/internal/log"
)

// StatusRecords returns a room's payment status records.
func (l *Ledger) StatusRecords(ctx context.Context, roomID int64) ([]core.InvoiceStatusRecord, error) {
	return kv.GetList[core.InvoiceStatusRecord](ctx, l.store, kv.InvoiceStatusKey(roomID))
}

// InvoiceStatus returns the effective status of an invoice: the status
// record wins over the invoice's own copy, and an invoice with neither
// is PENDING.
func (l *Ledger) InvoiceStatus(ctx context.Context, roomID, invoiceID int64) (core.Status, error) {
	invoice, err := l.Invoice(ctx, roomID, invoiceID)
	if err != nil {
		return "", err
	}
	records, err := l.StatusRecords(ctx, roomID)
	if err != nil {
		return "", err
	}
	var record *core.InvoiceStatusRecord
	for i := range records {
		if records[i].ID == invoiceID {
			record = &records[i]
			break
		}
	}
	return core.EffectiveStatus(record, &invoice), nil
}

// MarkPaymentSent advances a PENDING invoice to PAYMENT SENT. Invoices
// already at PAYMENT SENT or COMPLETE are left alone; status never
// moves backwards.
func (l *Ledger) MarkPaymentSent(ctx context.Context, roomID, invoiceID int64) error {
	current, err := l.InvoiceStatus(ctx, roomID, invoiceID)
	if err != nil {
		return err
	}
	if current.Rank() >= core.StatusPaymentSent.Rank() {
		return nil
	}
	return l.setStatus(ctx, roomID, invoiceID, core.StatusPaymentSent)
}

// MarkComplete advances a PAYMENT SENT invoice to COMPLETE. A COMPLETE
// invoice stays COMPLETE; confirming a payment that was never sent is
// an invalid transition.
func (l *Ledger) MarkComplete(ctx context.Context, roomID, invoiceID int64) error {
	current, err := l.InvoiceStatus(ctx, roomID, invoiceID)
	if err != nil {
		return err
	}
	if current == core.StatusComplete {
		return nil
	}
	if current != core.StatusPaymentSent {
		return fmt.Errorf("invoice %d is %s: %w", invoiceID, current, core.ErrInvalidTransition)
	}
	return l.setStatus(ctx, roomID, invoiceID, core.StatusComplete)
}

// setStatus upserts the status record and mirrors the new status onto
// the canonical invoice entry. A ledger missing the canonical entry is
// logged, not fatal: the record alone is enough for display.
func (l *Ledger) setStatus(ctx context.Context, roomID, invoiceID int64, status core.Status) error {
	now := core.NowISO()

	records, err := l.StatusRecords(ctx, roomID)
	if err != nil {
		return err
	}
	found := false
	for i := range records {
		if records[i].ID == invoiceID {
			records[i].Status = status
			records[i].UpdatedAt = now
			found = true
			break
		}
	}
	if !found {
		records = append(records, core.InvoiceStatusRecord{ID: invoiceID, Status: status, UpdatedAt: now})
	}
	if err := kv.SetList(ctx, l.store, kv.InvoiceStatusKey(roomID), records); err != nil {
		return err
	}

	invoices, err := l.Invoices(ctx, roomID)
	if err != nil {
		return err
	}
	updated := false
	for i := range invoices {
		if invoices[i].ID == invoiceID {
			invoices[i].Status = status
			invoices[i].UpdatedAt = now
			updated = true
			break
		}
	}
	if updated {
		if err := l.saveInvoices(ctx, roomID, invoices); err != nil {
			return err
		}
	} else {
		l.logger.WarnContext(ctx, "Status record has no canonical invoice",
			log.FieldRoomID, roomID,
			log.FieldInvoiceID, invoiceID)
	}

	l.publish(events.New(events.TypeStatusChanged, roomID, invoiceID))
	l.logger.InfoContext(ctx, "Invoice status changed",
		log.FieldRoomID, roomID,
		log.FieldInvoiceID, invoiceID,
		log.FieldStatus, string(status),
		log.FieldOperation, log.OpUpdate)
	return nil
}
