package worker

import (
	"context"
	"testing"

	"sharinghome/internal/amqp"
	"sharinghome/internal/core"
	"sharinghome/internal/directory"
	"sharinghome/internal/export/memory"
	"sharinghome/internal/kv"
	"sharinghome/internal/ledger"
	"sharinghome/internal/log"
	"sharinghome/internal/rooms"
)

func TestHandleSyncMessage(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	logger := log.New(log.DefaultConfig())
	dir := directory.New(store, logger)
	mgr := rooms.NewManager(store, dir, nil, logger)
	led := ledger.New(store, mgr, nil, logger)
	exporter := memory.NewExporter()
	w := NewExportWorker(led, mgr, exporter)

	room, err := mgr.CreateRoom(ctx, "3A", "Kos Melati")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.AddMember(ctx, room.ID, core.Member{Name: "Sasha", PhoneNumber: "62812"}); err != nil {
		t.Fatal(err)
	}
	inv, err := led.CreateInvoice(ctx, room.ID, "2026-08-01", []core.Expense{
		{Name: "Room", Price: core.ParseAmount("5000000"), Quantity: 1},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	msg := amqp.NewInvoiceSyncMessage(room.ID, inv.ID)
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	exports := exporter.Exports()
	if len(exports) != 1 {
		t.Fatalf("%d exports", len(exports))
	}
	got := exports[0]
	if got.Invoice.ID != inv.ID || got.Room.ID != room.ID || len(got.Members) != 1 {
		t.Fatalf("exported %+v", got)
	}
	if got.Invoice.TotalAmount.String() != "5000000" {
		t.Fatalf("exported total = %s", got.Invoice.TotalAmount)
	}

	// Unknown invoice fails so the delivery gets redelivered or dropped
	if err := w.HandleSyncMessage(ctx, amqp.NewInvoiceSyncMessage(room.ID, 999)); err == nil {
		t.Fatal("unknown invoice accepted")
	}
}
