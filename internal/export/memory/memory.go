// Package memory provides an in-memory InvoiceExporter for tests and
// the memory backend.
package memory

import (
	"context"
	"fmt"
	"sync"

	"sharinghome/internal/core"
	"sharinghome/internal/export"
)

type Export struct {
	Room    core.Room
	Invoice core.Invoice
	Members []core.Member
}

type Exporter struct {
	mu      sync.Mutex
	exports []Export
}

var _ export.InvoiceExporter = (*Exporter)(nil)

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) ExportInvoice(_ context.Context, room core.Room, invoice core.Invoice, members []core.Member) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exports = append(e.exports, Export{Room: room, Invoice: invoice, Members: members})
	return fmt.Sprintf("memory:%d", len(e.exports)), nil
}

// Exports returns a copy of everything exported so far.
func (e *Exporter) Exports() []Export {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Export(nil), e.exports...)
}
