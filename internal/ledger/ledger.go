// Package ledger builds and maintains per-room invoices and their
// payment status records.
package ledger

import (
	"context"
	"fmt"

	"sharinghome/internal/core"
	"sharinghome/internal/events"
	"sharinghome/internal/kv"
	"sharinghome/internal/log"
)

// RoomChecker supplies the room record an invoice belongs to. Satisfied
// by rooms.Manager.
type RoomChecker interface {
	Room(ctx context.Context, roomID int64) (core.Room, error)
}

type Ledger struct {
	store  kv.Store
	roomCk RoomChecker
	bus    *events.Bus
	logger *log.Logger
}

func New(store kv.Store, roomCk RoomChecker, bus *events.Bus, logger *log.Logger) *Ledger {
	return &Ledger{
		store:  store,
		roomCk: roomCk,
		bus:    bus,
		logger: logger.WithComponent(log.ComponentLedger),
	}
}

func (l *Ledger) publish(e events.Event) {
	if l.bus != nil {
		l.bus.Publish(e)
	}
}

// Invoices returns a room's invoice list, oldest first.
func (l *Ledger) Invoices(ctx context.Context, roomID int64) ([]core.Invoice, error) {
	return kv.GetList[core.Invoice](ctx, l.store, kv.InvoicesKey(roomID))
}

// Invoice returns one invoice by id.
func (l *Ledger) Invoice(ctx context.Context, roomID, invoiceID int64) (core.Invoice, error) {
	invoices, err := l.Invoices(ctx, roomID)
	if err != nil {
		return core.Invoice{}, err
	}
	for _, inv := range invoices {
		if inv.ID == invoiceID {
			return inv, nil
		}
	}
	return core.Invoice{}, fmt.Errorf("invoice %d: %w", invoiceID, core.ErrInvoiceNotFound)
}

// Current returns the room's current invoice: the one with the greatest
// id that still has expenses. Emptied invoices are skipped.
func (l *Ledger) Current(ctx context.Context, roomID int64) (core.Invoice, bool, error) {
	invoices, err := l.Invoices(ctx, roomID)
	if err != nil {
		return core.Invoice{}, false, err
	}
	var current core.Invoice
	found := false
	for _, inv := range invoices {
		if len(inv.Expenses) == 0 {
			continue
		}
		if !found || inv.ID > current.ID {
			current = inv
			found = true
		}
	}
	return current, found, nil
}

// CreateInvoice builds an invoice from the room's default expense set
// plus any ad-hoc expenses and appends it to the room's ledger. Totals
// are derived: total is the exact sum of price*quantity, each member's
// share is the floor of total over the room's member count.
func (l *Ledger) CreateInvoice(ctx context.Context, roomID int64, date string, defaults, adhoc []core.Expense) (core.Invoice, error) {
	room, err := l.roomCk.Room(ctx, roomID)
	if err != nil {
		return core.Invoice{}, err
	}

	expenses := make([]core.Expense, 0, len(defaults)+len(adhoc))
	expenses = append(expenses, defaults...)
	expenses = append(expenses, adhoc...)
	for _, e := range expenses {
		if err := e.Validate(); err != nil {
			return core.Invoice{}, fmt.Errorf("expense %q: %w", e.Name, err)
		}
	}
	if date == "" {
		date = core.NowISO()
	}

	invoice := core.Invoice{
		ID:       core.NewID(),
		RoomID:   roomID,
		Date:     date,
		Expenses: expenses,
	}
	recompute(&invoice, room.MemberCount)

	invoices, err := l.Invoices(ctx, roomID)
	if err != nil {
		return core.Invoice{}, err
	}
	invoices = append(invoices, invoice)
	if err := l.saveInvoices(ctx, roomID, invoices); err != nil {
		return core.Invoice{}, err
	}

	l.publish(events.New(events.TypeInvoiceCreated, roomID, invoice.ID))
	l.logger.InfoContext(ctx, "Invoice created",
		log.FieldRoomID, roomID,
		log.FieldInvoiceID, invoice.ID,
		log.FieldAmount, invoice.TotalAmount.String(),
		log.FieldOperation, log.OpCreate)
	return invoice, nil
}

// EditInvoice replaces an invoice's expense list and recomputes its
// totals. The invoice keeps its id, so any status record stays attached.
func (l *Ledger) EditInvoice(ctx context.Context, roomID, invoiceID int64, expenses []core.Expense) (core.Invoice, error) {
	room, err := l.roomCk.Room(ctx, roomID)
	if err != nil {
		return core.Invoice{}, err
	}
	for _, e := range expenses {
		if err := e.Validate(); err != nil {
			return core.Invoice{}, fmt.Errorf("expense %q: %w", e.Name, err)
		}
	}

	invoices, err := l.Invoices(ctx, roomID)
	if err != nil {
		return core.Invoice{}, err
	}
	for i := range invoices {
		if invoices[i].ID != invoiceID {
			continue
		}
		invoices[i].Expenses = expenses
		recompute(&invoices[i], room.MemberCount)
		invoices[i].UpdatedAt = core.NowISO()
		if err := l.saveInvoices(ctx, roomID, invoices); err != nil {
			return core.Invoice{}, err
		}
		l.publish(events.New(events.TypeInvoiceUpdated, roomID, invoiceID))
		return invoices[i], nil
	}
	return core.Invoice{}, fmt.Errorf("invoice %d: %w", invoiceID, core.ErrInvoiceNotFound)
}

// OverrideMemberShare pins an invoice's per-member amount to an
// explicit value that survives later recomputation of the expense
// list. A nil override restores the computed floor share.
func (l *Ledger) OverrideMemberShare(ctx context.Context, roomID, invoiceID int64, override *core.Amount) (core.Invoice, error) {
	room, err := l.roomCk.Room(ctx, roomID)
	if err != nil {
		return core.Invoice{}, err
	}
	if override != nil && override.Sign() < 0 {
		return core.Invoice{}, core.ErrInvalidAmount
	}

	invoices, err := l.Invoices(ctx, roomID)
	if err != nil {
		return core.Invoice{}, err
	}
	for i := range invoices {
		if invoices[i].ID != invoiceID {
			continue
		}
		invoices[i].EachMemberOverride = override
		recompute(&invoices[i], room.MemberCount)
		invoices[i].UpdatedAt = core.NowISO()
		if err := l.saveInvoices(ctx, roomID, invoices); err != nil {
			return core.Invoice{}, err
		}
		l.publish(events.New(events.TypeInvoiceUpdated, roomID, invoiceID))
		l.logger.InfoContext(ctx, "Member share override set",
			log.FieldRoomID, roomID,
			log.FieldInvoiceID, invoiceID,
			log.FieldOperation, log.OpUpdate)
		return invoices[i], nil
	}
	return core.Invoice{}, fmt.Errorf("invoice %d: %w", invoiceID, core.ErrInvoiceNotFound)
}

// DeleteInvoice removes an invoice from the room's ledger.
func (l *Ledger) DeleteInvoice(ctx context.Context, roomID, invoiceID int64) error {
	invoices, err := l.Invoices(ctx, roomID)
	if err != nil {
		return err
	}
	kept := make([]core.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.ID != invoiceID {
			kept = append(kept, inv)
		}
	}
	if len(kept) == len(invoices) {
		return fmt.Errorf("invoice %d: %w", invoiceID, core.ErrInvoiceNotFound)
	}
	if err := l.saveInvoices(ctx, roomID, kept); err != nil {
		return err
	}
	l.publish(events.New(events.TypeInvoiceDeleted, roomID, invoiceID))
	return nil
}

// AppendExpenseToLatest adds an expense to the room's newest invoice,
// creating a fresh invoice when the room has none yet.
func (l *Ledger) AppendExpenseToLatest(ctx context.Context, roomID int64, expense core.Expense) (core.Invoice, error) {
	room, err := l.roomCk.Room(ctx, roomID)
	if err != nil {
		return core.Invoice{}, err
	}
	if err := expense.Validate(); err != nil {
		return core.Invoice{}, fmt.Errorf("expense %q: %w", expense.Name, err)
	}

	invoices, err := l.Invoices(ctx, roomID)
	if err != nil {
		return core.Invoice{}, err
	}
	if len(invoices) == 0 {
		return l.CreateInvoice(ctx, roomID, "", nil, []core.Expense{expense})
	}

	idx := latestIndex(invoices)
	invoices[idx].Expenses = append(invoices[idx].Expenses, expense)
	recompute(&invoices[idx], room.MemberCount)
	invoices[idx].UpdatedAt = core.NowISO()
	if err := l.saveInvoices(ctx, roomID, invoices); err != nil {
		return core.Invoice{}, err
	}
	l.publish(events.New(events.TypeInvoiceUpdated, roomID, invoices[idx].ID))
	return invoices[idx], nil
}

// RemoveExpenseAt removes the expense at the given position from the
// room's newest invoice. Removing the last expense leaves a zero-total
// invoice behind; Current skips it.
func (l *Ledger) RemoveExpenseAt(ctx context.Context, roomID int64, index int) (core.Invoice, error) {
	room, err := l.roomCk.Room(ctx, roomID)
	if err != nil {
		return core.Invoice{}, err
	}
	invoices, err := l.Invoices(ctx, roomID)
	if err != nil {
		return core.Invoice{}, err
	}
	if len(invoices) == 0 {
		return core.Invoice{}, fmt.Errorf("room %d: %w", roomID, core.ErrInvoiceNotFound)
	}

	idx := latestIndex(invoices)
	expenses := invoices[idx].Expenses
	if index < 0 || index >= len(expenses) {
		return core.Invoice{}, fmt.Errorf("expense index %d out of range", index)
	}
	invoices[idx].Expenses = append(expenses[:index], expenses[index+1:]...)
	recompute(&invoices[idx], room.MemberCount)
	invoices[idx].UpdatedAt = core.NowISO()
	if err := l.saveInvoices(ctx, roomID, invoices); err != nil {
		return core.Invoice{}, err
	}
	l.publish(events.New(events.TypeInvoiceUpdated, roomID, invoices[idx].ID))
	return invoices[idx], nil
}

func (l *Ledger) saveInvoices(ctx context.Context, roomID int64, invoices []core.Invoice) error {
	return kv.SetList(ctx, l.store, kv.InvoicesKey(roomID), invoices)
}

func latestIndex(invoices []core.Invoice) int {
	idx := 0
	for i := range invoices {
		if invoices[i].ID > invoices[idx].ID {
			idx = i
		}
	}
	return idx
}

func recompute(inv *core.Invoice, memberCount int) {
	inv.TotalAmount = core.InvoiceTotal(inv.Expenses)
	if inv.EachMemberOverride != nil {
		inv.EachMemberAmount = *inv.EachMemberOverride
		return
	}
	inv.EachMemberAmount = core.Share(inv.TotalAmount, memberCount)
}
