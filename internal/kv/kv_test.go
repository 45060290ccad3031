package kv

import (
	"context"
	"path/filepath"
	"testing"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlitePath := filepath.Join(t.TempDir(), "data", "test.db")
	sqliteStore, err := NewSQLiteStore(sqlitePath)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("missing key: ok=%v err=%v", ok, err)
			}

			if err := s.Set(ctx, "rooms", `[{"id":1}]`); err != nil {
				t.Fatalf("set: %v", err)
			}
			v, ok, err := s.Get(ctx, "rooms")
			if err != nil || !ok || v != `[{"id":1}]` {
				t.Fatalf("get after set: v=%q ok=%v err=%v", v, ok, err)
			}

			// Set overwrites
			if err := s.Set(ctx, "rooms", `[]`); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			if v, _, _ := s.Get(ctx, "rooms"); v != `[]` {
				t.Fatalf("overwrite result: %q", v)
			}

			if err := s.Remove(ctx, "rooms"); err != nil {
				t.Fatalf("remove: %v", err)
			}
			if _, ok, _ := s.Get(ctx, "rooms"); ok {
				t.Fatal("key survived remove")
			}
			// Removing an absent key is not an error
			if err := s.Remove(ctx, "rooms"); err != nil {
				t.Fatalf("remove absent: %v", err)
			}
		})
	}
}

func TestGetListDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	type room struct {
		ID int64 `json:"id"`
	}

	// Absent key
	list, err := GetList[room](ctx, s, RoomsKey)
	if err != nil {
		t.Fatalf("absent: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("absent key gave %d entries", len(list))
	}

	// Corrupt payload
	if err := s.Set(ctx, RoomsKey, `{not json`); err != nil {
		t.Fatal(err)
	}
	list, err = GetList[room](ctx, s, RoomsKey)
	if err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("corrupt value gave %d entries", len(list))
	}
}

func TestSetListGetList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	type member struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	in := []member{{ID: 1, Name: "Sasha"}, {ID: 2, Name: "Budi"}}
	if err := SetList(ctx, s, MembersKey(7), in); err != nil {
		t.Fatalf("set list: %v", err)
	}
	out, err := GetList[member](ctx, s, MembersKey(7))
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(out) != 2 || out[0].Name != "Sasha" || out[1].ID != 2 {
		t.Fatalf("round trip gave %+v", out)
	}
}

func TestKeys(t *testing.T) {
	if got := MembersKey(42); got != "members:42" {
		t.Errorf("MembersKey = %s", got)
	}
	if got := InvoicesKey(42); got != "invoices:42" {
		t.Errorf("InvoicesKey = %s", got)
	}
	if got := InvoiceStatusKey(42); got != "invoices_status:42" {
		t.Errorf("InvoiceStatusKey = %s", got)
	}
	if got := ProfileKey("628123"); got != "profile:628123" {
		t.Errorf("ProfileKey = %s", got)
	}
	if got := ProfilePhotoKey("628123"); got != "profilePhoto:628123" {
		t.Errorf("ProfilePhotoKey = %s", got)
	}
}
