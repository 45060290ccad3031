// Package export defines the outbound port for handing finished
// invoices to an external destination, the "download" side of the
// payment flow.
package export

import (
	"context"

	"sharinghome/internal/core"
)

// InvoiceExporter writes one invoice, with its room and member context,
// to an external destination and returns an opaque reference to it.
type InvoiceExporter interface {
	ExportInvoice(ctx context.Context, room core.Room, invoice core.Invoice, members []core.Member) (ref string, err error)
}
