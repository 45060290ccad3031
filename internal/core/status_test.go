package core

import (
	"reflect"
	"testing"
)

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		in   string
		want Status
	}{
		{"PENDING", StatusPending},
		{"PAYMENT SENT", StatusPaymentSent},
		{"payment sent", StatusPaymentSent},
		{" complete ", StatusComplete},
		{"", StatusPending},
		{"PAID", StatusPending},
	}
	for _, tc := range cases {
		if got := NormalizeStatus(tc.in); got != tc.want {
			t.Errorf("NormalizeStatus(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestStatusRank(t *testing.T) {
	if StatusPending.Rank() >= StatusPaymentSent.Rank() {
		t.Fatal("PENDING should rank below PAYMENT SENT")
	}
	if StatusPaymentSent.Rank() >= StatusComplete.Rank() {
		t.Fatal("PAYMENT SENT should rank below COMPLETE")
	}
}

func TestEffectiveStatus(t *testing.T) {
	rec := &InvoiceStatusRecord{ID: 1, Status: StatusComplete}
	inv := &Invoice{ID: 1, Status: StatusPaymentSent}

	cases := []struct {
		name    string
		record  *InvoiceStatusRecord
		invoice *Invoice
		want    Status
	}{
		{"record wins over invoice", rec, inv, StatusComplete},
		{"invoice status when no record", nil, inv, StatusPaymentSent},
		{"default pending", nil, &Invoice{ID: 2}, StatusPending},
		{"nil everything", nil, nil, StatusPending},
		{"empty record falls through", &InvoiceStatusRecord{ID: 1}, inv, StatusPaymentSent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EffectiveStatus(tc.record, tc.invoice); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestActionsFor(t *testing.T) {
	cases := []struct {
		name   string
		status Status
		master bool
		want   []Action
	}{
		{"pending member", StatusPending, false, []Action{ActionNotifyMembers}},
		{"pending master", StatusPending, true, []Action{ActionNotifyMembers, ActionConfirmPayment}},
		{"payment sent", StatusPaymentSent, false, []Action{ActionDownload}},
		{"complete master", StatusComplete, true, []Action{ActionDownload}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ActionsFor(tc.status, tc.master)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}
