package services

import (
	"context"
	"testing"
	"time"

	"sharinghome/internal/core"
	"sharinghome/internal/directory"
	"sharinghome/internal/events"
	"sharinghome/internal/kv"
	"sharinghome/internal/ledger"
	"sharinghome/internal/log"
	"sharinghome/internal/rooms"
)

type fixture struct {
	store   *kv.MemoryStore
	rooms   *rooms.Manager
	ledger  *ledger.Ledger
	service *InvoiceService
	bus     *events.Bus
}

func newFixture(t *testing.T, memberCount int) (*fixture, int64) {
	t.Helper()
	ctx := context.Background()
	store := kv.NewMemoryStore()
	logger := log.New(log.DefaultConfig())
	dir := directory.New(store, logger)
	bus := events.NewBus()
	mgr := rooms.NewManager(store, dir, bus, logger)
	led := ledger.New(store, mgr, bus, logger)
	svc := NewInvoiceService(led, mgr, store, nil)

	room, err := mgr.CreateRoom(ctx, "3A", "Kos Melati")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	phones := []string{"111", "222", "333", "444"}
	for i := 0; i < memberCount; i++ {
		if _, err := mgr.AddMember(ctx, room.ID, core.Member{Name: "M", PhoneNumber: phones[i]}); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}
	return &fixture{store: store, rooms: mgr, ledger: led, service: svc, bus: bus}, room.ID
}

func TestCreateInvoiceSchedulesNextBilling(t *testing.T) {
	ctx := context.Background()
	f, roomID := newFixture(t, 2)

	inv, err := f.service.CreateInvoice(ctx, roomID, "2026-08-01", []core.Expense{
		{Name: "Room", Price: core.ParseAmount("5000000"), Quantity: 1},
	}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.EachMemberAmount.String() != "2500000" {
		t.Fatalf("each = %s", inv.EachMemberAmount)
	}

	room, err := f.rooms.Room(ctx, roomID)
	if err != nil {
		t.Fatal(err)
	}
	next, err := time.Parse(time.RFC3339, room.NextInvoiceDate)
	if err != nil {
		t.Fatalf("nextInvoiceDate %q: %v", room.NextInvoiceDate, err)
	}
	if next.Month() != time.September || next.Day() != 1 {
		t.Fatalf("next billing = %v, want 1 Sep", next)
	}
}

func TestCreateInvoiceWithoutAMQPStillPersists(t *testing.T) {
	ctx := context.Background()
	f, roomID := newFixture(t, 1)

	inv, err := f.service.CreateInvoice(ctx, roomID, "", []core.Expense{
		{Name: "Water", Price: core.ParseAmount("90000"), Quantity: 1},
	}, nil)
	if err != nil {
		t.Fatalf("create without amqp: %v", err)
	}
	if _, err := f.ledger.Invoice(ctx, roomID, inv.ID); err != nil {
		t.Fatalf("invoice not persisted: %v", err)
	}
}

func TestMarkLifecycleThroughService(t *testing.T) {
	ctx := context.Background()
	f, roomID := newFixture(t, 2)

	inv, err := f.service.CreateInvoice(ctx, roomID, "2026-08-01", []core.Expense{
		{Name: "Room", Price: core.ParseAmount("100"), Quantity: 1},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.service.MarkPaymentSent(ctx, roomID, inv.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.service.MarkComplete(ctx, roomID, inv.ID); err != nil {
		t.Fatal(err)
	}
	status, err := f.ledger.InvoiceStatus(ctx, roomID, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status != core.StatusComplete {
		t.Fatalf("status = %s", status)
	}
}

func TestScheduledChecker(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		date string
		want bool
	}{
		{"past date due", "2026-08-01T00:00:00Z", true},
		{"today due", "2026-08-31T00:00:00Z", true},
		{"future not due", "2026-09-01T00:00:00Z", false},
		{"date-only form", "2026-08-30", true},
		{"empty never due", "", false},
		{"garbage never due", "soon", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := (ScheduledChecker{}).IsDue(tc.date, now); got != tc.want {
				t.Errorf("IsDue(%q) = %v, want %v", tc.date, got, tc.want)
			}
		})
	}
}

func TestProcessDueRooms(t *testing.T) {
	ctx := context.Background()
	f, roomID := newFixture(t, 2)

	// Seed a template invoice; its create scheduled billing for 1 Sep
	if _, err := f.service.CreateInvoice(ctx, roomID, "2026-08-01", []core.Expense{
		{Name: "Room", Price: core.ParseAmount("5000000"), Quantity: 1},
	}, nil); err != nil {
		t.Fatal(err)
	}

	p := NewBillingProcessor(f.ledger, f.rooms, f.service, nil)

	// Before the due date nothing happens
	n, err := p.ProcessDueRooms(ctx, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))
	if err != nil || n != 0 {
		t.Fatalf("early run: n=%d err=%v", n, err)
	}

	// On the due date one invoice is generated from the template
	n, err = p.ProcessDueRooms(ctx, time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("processed %d rooms, want 1", n)
	}

	invoices, err := f.ledger.Invoices(ctx, roomID)
	if err != nil {
		t.Fatal(err)
	}
	if len(invoices) != 2 {
		t.Fatalf("%d invoices after billing", len(invoices))
	}
	latest := invoices[len(invoices)-1]
	if latest.TotalAmount.String() != "5000000" {
		t.Fatalf("recurring invoice total = %s", latest.TotalAmount)
	}

	// Billing moved the schedule forward, so a rerun creates nothing
	n, err = p.ProcessDueRooms(ctx, time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC))
	if err != nil || n != 0 {
		t.Fatalf("rerun: n=%d err=%v", n, err)
	}
}

func TestProcessDueRoomsSkipsTemplatelessRoom(t *testing.T) {
	ctx := context.Background()
	f, roomID := newFixture(t, 1)

	if err := f.rooms.SetNextInvoiceDate(ctx, roomID, "2026-08-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}
	p := NewBillingProcessor(f.ledger, f.rooms, f.service, nil)
	n, err := p.ProcessDueRooms(ctx, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("billed a room with no template invoice: n=%d", n)
	}
}
