package core

import "strings"

// Payment lifecycle states, in order. PENDING is the default for any
// invoice without an explicit status record.
const (
	StatusPending     Status = "PENDING"
	StatusPaymentSent Status = "PAYMENT SENT"
	StatusComplete    Status = "COMPLETE"
)

type Status string

// NormalizeStatus maps a persisted status string onto one of the known
// states. Unknown or empty values degrade to PENDING.
func NormalizeStatus(s string) Status {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusPaymentSent:
		return StatusPaymentSent
	case StatusComplete:
		return StatusComplete
	default:
		return StatusPending
	}
}

// Rank orders statuses: PENDING < PAYMENT SENT < COMPLETE. Status is
// monotonically non-decreasing in this ordering for any given invoice.
func (s Status) Rank() int {
	switch s {
	case StatusPaymentSent:
		return 1
	case StatusComplete:
		return 2
	default:
		return 0
	}
}

// EffectiveStatus implements the display rule: the status record's
// value wins if present, else the canonical invoice's own status, else
// PENDING.
func EffectiveStatus(record *InvoiceStatusRecord, invoice *Invoice) Status {
	if record != nil && record.Status != "" {
		return NormalizeStatus(string(record.Status))
	}
	if invoice != nil && invoice.Status != "" {
		return NormalizeStatus(string(invoice.Status))
	}
	return StatusPending
}

// Action affordances derived from the effective status.
const (
	ActionNotifyMembers  Action = "notify_members"
	ActionConfirmPayment Action = "confirm_payment"
	ActionDownload       Action = "download"
)

type Action string

// ActionsFor returns the affordances for an invoice in the given
// effective status. Confirming a payment is reserved for room masters.
func ActionsFor(s Status, isRoomMaster bool) []Action {
	switch s {
	case StatusPaymentSent, StatusComplete:
		return []Action{ActionDownload}
	default:
		actions := []Action{ActionNotifyMembers}
		if isRoomMaster {
			actions = append(actions, ActionConfirmPayment)
		}
		return actions
	}
}
