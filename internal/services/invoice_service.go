// Package services orchestrates domain operations: invoices persist
// locally first, then sync messages go out on a best-effort basis.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sharinghome/internal/amqp"
	"sharinghome/internal/core"
	"sharinghome/internal/kv"
	"sharinghome/internal/ledger"
	"sharinghome/internal/rooms"
)

// InvoiceService wraps the ledger with room bookkeeping and outbound
// sync. A nil AMQP client means sync messages are skipped.
type InvoiceService struct {
	ledger     *ledger.Ledger
	rooms      *rooms.Manager
	store      kv.Store
	amqpClient *amqp.Client
}

func NewInvoiceService(l *ledger.Ledger, r *rooms.Manager, store kv.Store, amqpClient *amqp.Client) *InvoiceService {
	return &InvoiceService{
		ledger:     l,
		rooms:      r,
		store:      store,
		amqpClient: amqpClient,
	}
}

// CreateInvoice persists the invoice, schedules the room's next billing
// date a month out and publishes a sync message. Only the persist step
// can fail the call; everything after is best effort.
func (s *InvoiceService) CreateInvoice(ctx context.Context, roomID int64, date string, defaults, adhoc []core.Expense) (core.Invoice, error) {
	invoice, err := s.ledger.CreateInvoice(ctx, roomID, date, defaults, adhoc)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}

	if next, ok := nextBillingDate(invoice.Date); ok {
		if err := s.rooms.SetNextInvoiceDate(ctx, roomID, next); err != nil {
			slog.ErrorContext(ctx, "Failed to schedule next invoice date",
				"room_id", roomID, "error", err)
		}
	}

	s.publishSync(ctx, roomID, invoice.ID)
	return invoice, nil
}

// EditInvoice updates an invoice's expenses and republishes it.
func (s *InvoiceService) EditInvoice(ctx context.Context, roomID, invoiceID int64, expenses []core.Expense) (core.Invoice, error) {
	invoice, err := s.ledger.EditInvoice(ctx, roomID, invoiceID, expenses)
	if err != nil {
		return core.Invoice{}, err
	}
	s.publishSync(ctx, roomID, invoiceID)
	return invoice, nil
}

// OverrideMemberShare pins the per-member amount of an invoice and
// republishes it. A nil override restores the computed share.
func (s *InvoiceService) OverrideMemberShare(ctx context.Context, roomID, invoiceID int64, override *core.Amount) (core.Invoice, error) {
	invoice, err := s.ledger.OverrideMemberShare(ctx, roomID, invoiceID, override)
	if err != nil {
		return core.Invoice{}, err
	}
	s.publishSync(ctx, roomID, invoiceID)
	return invoice, nil
}

func (s *InvoiceService) DeleteInvoice(ctx context.Context, roomID, invoiceID int64) error {
	return s.ledger.DeleteInvoice(ctx, roomID, invoiceID)
}

func (s *InvoiceService) AppendExpense(ctx context.Context, roomID int64, expense core.Expense) (core.Invoice, error) {
	invoice, err := s.ledger.AppendExpenseToLatest(ctx, roomID, expense)
	if err != nil {
		return core.Invoice{}, err
	}
	s.publishSync(ctx, roomID, invoice.ID)
	return invoice, nil
}

func (s *InvoiceService) RemoveExpenseAt(ctx context.Context, roomID int64, index int) (core.Invoice, error) {
	invoice, err := s.ledger.RemoveExpenseAt(ctx, roomID, index)
	if err != nil {
		return core.Invoice{}, err
	}
	s.publishSync(ctx, roomID, invoice.ID)
	return invoice, nil
}

func (s *InvoiceService) MarkPaymentSent(ctx context.Context, roomID, invoiceID int64) error {
	return s.ledger.MarkPaymentSent(ctx, roomID, invoiceID)
}

// MarkComplete confirms the payment and publishes a sync message so the
// completed invoice reaches the export destination.
func (s *InvoiceService) MarkComplete(ctx context.Context, roomID, invoiceID int64) error {
	if err := s.ledger.MarkComplete(ctx, roomID, invoiceID); err != nil {
		return err
	}
	s.publishSync(ctx, roomID, invoiceID)
	return nil
}

func (s *InvoiceService) publishSync(ctx context.Context, roomID, invoiceID int64) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return
	}
	if err := s.amqpClient.PublishInvoiceSync(ctx, roomID, invoiceID); err != nil {
		// The invoice is already persisted; sync is best effort
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"room_id", roomID,
			"invoice_id", invoiceID,
			"error", err)
	}
}

// Close closes the store and AMQP connections.
func (s *InvoiceService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close invoice service: %v", errs)
	}
	return nil
}

// nextBillingDate returns the invoice date plus one month, in the same
// RFC 3339 form. Unparseable dates report ok=false.
func nextBillingDate(date string) (string, bool) {
	t, err := time.Parse(time.RFC3339, date)
	if err != nil {
		if t, err = time.Parse("2006-01-02", date); err != nil {
			return "", false
		}
	}
	return t.AddDate(0, 1, 0).UTC().Format(time.RFC3339), true
}
