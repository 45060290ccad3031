package ledger

import (
	"context"
	"errors"
	"testing"

	"sharinghome/internal/core"
)

func createTestInvoice(t *testing.T, l *Ledger, roomID int64) core.Invoice {
	t.Helper()
	inv, err := l.CreateInvoice(context.Background(), roomID, "2026-08-01", []core.Expense{
		{Name: "Room", Price: core.ParseAmount("5000000"), Quantity: 1},
	}, nil)
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return inv
}

func TestStatusDefaultsToPending(t *testing.T) {
	ctx := context.Background()
	l, _, roomID := newTestLedger(t, 2)
	inv := createTestInvoice(t, l, roomID)

	status, err := l.InvoiceStatus(ctx, roomID, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status != core.StatusPending {
		t.Fatalf("status = %s, want PENDING", status)
	}
}

func TestStatusLifecycle(t *testing.T) {
	ctx := context.Background()
	l, _, roomID := newTestLedger(t, 2)
	inv := createTestInvoice(t, l, roomID)

	// Confirming before payment is sent is invalid
	if err := l.MarkComplete(ctx, roomID, inv.ID); !errors.Is(err, core.ErrInvalidTransition) {
		t.Fatalf("complete from PENDING: %v", err)
	}

	if err := l.MarkPaymentSent(ctx, roomID, inv.ID); err != nil {
		t.Fatal(err)
	}
	if status, _ := l.InvoiceStatus(ctx, roomID, inv.ID); status != core.StatusPaymentSent {
		t.Fatalf("status = %s", status)
	}

	if err := l.MarkComplete(ctx, roomID, inv.ID); err != nil {
		t.Fatal(err)
	}
	if status, _ := l.InvoiceStatus(ctx, roomID, inv.ID); status != core.StatusComplete {
		t.Fatalf("status = %s", status)
	}

	// Re-marking earlier states never moves status backwards
	if err := l.MarkPaymentSent(ctx, roomID, inv.ID); err != nil {
		t.Fatal(err)
	}
	if err := l.MarkComplete(ctx, roomID, inv.ID); err != nil {
		t.Fatal(err)
	}
	if status, _ := l.InvoiceStatus(ctx, roomID, inv.ID); status != core.StatusComplete {
		t.Fatalf("status regressed to %s", status)
	}
}

func TestStatusWrittenToBothCopies(t *testing.T) {
	ctx := context.Background()
	l, _, roomID := newTestLedger(t, 2)
	inv := createTestInvoice(t, l, roomID)

	if err := l.MarkPaymentSent(ctx, roomID, inv.ID); err != nil {
		t.Fatal(err)
	}

	records, err := l.StatusRecords(ctx, roomID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ID != inv.ID || records[0].Status != core.StatusPaymentSent {
		t.Fatalf("records = %+v", records)
	}
	if records[0].UpdatedAt == "" {
		t.Fatal("record missing updatedAt")
	}

	canonical, err := l.Invoice(ctx, roomID, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if canonical.Status != core.StatusPaymentSent {
		t.Fatalf("canonical copy = %s", canonical.Status)
	}
}

func TestMarkPaymentSentUnknownInvoice(t *testing.T) {
	ctx := context.Background()
	l, _, roomID := newTestLedger(t, 2)

	if err := l.MarkPaymentSent(ctx, roomID, 999); !errors.Is(err, core.ErrInvoiceNotFound) {
		t.Fatalf("unknown invoice: %v", err)
	}
}
