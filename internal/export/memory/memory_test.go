package memory

import (
	"context"
	"testing"

	"sharinghome/internal/core"
)

func TestExporterRecords(t *testing.T) {
	e := NewExporter()
	room := core.Room{ID: 7, Name: "3A"}
	invoice := core.Invoice{ID: 42, RoomID: 7, TotalAmount: core.ParseAmount("10400000")}

	ref, err := e.ExportInvoice(context.Background(), room, invoice, nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if ref == "" {
		t.Fatal("empty reference")
	}

	exports := e.Exports()
	if len(exports) != 1 {
		t.Fatalf("%d exports", len(exports))
	}
	if exports[0].Invoice.ID != 42 || exports[0].Room.ID != 7 {
		t.Fatalf("recorded %+v", exports[0])
	}
}
