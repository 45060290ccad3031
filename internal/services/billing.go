package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sharinghome/internal/ledger"
	"sharinghome/internal/rooms"
)

// DuenessChecker decides whether a room's next invoice date has
// arrived. The strategy interface keeps the billing loop independent of
// any one schedule shape.
type DuenessChecker interface {
	IsDue(nextInvoiceDate string, now time.Time) bool
}

// ScheduledChecker bills a room once its recorded next invoice date has
// passed. Rooms without a date, or with one that fails to parse, are
// never due.
type ScheduledChecker struct{}

func (ScheduledChecker) IsDue(nextInvoiceDate string, now time.Time) bool {
	if nextInvoiceDate == "" {
		return false
	}
	due, err := time.Parse(time.RFC3339, nextInvoiceDate)
	if err != nil {
		if due, err = time.Parse("2006-01-02", nextInvoiceDate); err != nil {
			return false
		}
	}
	return !now.Before(due)
}

// BillingProcessor generates the next invoice for every due room. The
// newest non-empty invoice serves as the template for its recurring
// expense set.
type BillingProcessor struct {
	ledger  *ledger.Ledger
	rooms   *rooms.Manager
	service *InvoiceService
	checker DuenessChecker
}

func NewBillingProcessor(l *ledger.Ledger, r *rooms.Manager, service *InvoiceService, checker DuenessChecker) *BillingProcessor {
	if checker == nil {
		checker = ScheduledChecker{}
	}
	return &BillingProcessor{
		ledger:  l,
		rooms:   r,
		service: service,
		checker: checker,
	}
}

// ProcessDueRooms creates invoices for all rooms whose billing date has
// arrived and returns how many it created. A failing room is logged and
// skipped; one bad room never blocks the rest.
func (p *BillingProcessor) ProcessDueRooms(ctx context.Context, now time.Time) (int, error) {
	if p.ledger == nil || p.service == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	all, err := p.rooms.Rooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("list rooms: %w", err)
	}

	slog.InfoContext(ctx, "Processing due rooms",
		"total_rooms", len(all),
		"processing_date", now.Format("2006-01-02"))

	processed := 0
	for _, room := range all {
		if !p.checker.IsDue(room.NextInvoiceDate, now) {
			continue
		}

		template, found, err := p.ledger.Current(ctx, room.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load template invoice",
				"room_id", room.ID, "error", err)
			continue
		}
		if !found {
			slog.WarnContext(ctx, "Due room has no invoice to use as template",
				"room_id", room.ID)
			continue
		}

		date := now.UTC().Format(time.RFC3339)
		if _, err := p.service.CreateInvoice(ctx, room.ID, date, template.Expenses, nil); err != nil {
			slog.ErrorContext(ctx, "Failed to create recurring invoice",
				"room_id", room.ID, "error", err)
			continue
		}
		processed++
	}

	if processed > 0 {
		slog.InfoContext(ctx, "Recurring invoices created", "count", processed)
	}
	return processed, nil
}
