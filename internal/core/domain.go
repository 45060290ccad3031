package core

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"
)

// Roles. HOME_MASTER is a session-level attribute; ROOM_MASTER and
// ROOM_MEMBER are room-scoped and live only in a room's member list.
const (
	RoleHomeMaster Role = "HOME_MASTER"
	RoleRoomMaster Role = "ROOM_MASTER"
	RoleRoomMember Role = "ROOM_MEMBER"
)

type (
	Role string

	// Member is a room-scoped occupant record. Identity is the canonical
	// digits-only phone number; ID is a locally unique surrogate.
	Member struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		PhoneNumber string `json:"phoneNumber"`
		Avatar      string `json:"avatar,omitempty"`
		Role        Role   `json:"role"`
	}

	// Expense is a single invoice line item. Price is in minor currency
	// units and must never pass through a float.
	Expense struct {
		ID       int64  `json:"id,omitempty"`
		Name     string `json:"name"`
		Price    Amount `json:"price"`
		Quantity int    `json:"quantity"`
	}

	// Invoice aggregates expenses for one billing period of a room.
	// TotalAmount and EachMemberAmount are derived values: they are
	// recomputed whenever Expenses changes and never edited directly.
	// When EachMemberOverride is set it pins EachMemberAmount to that
	// value instead of the computed floor share.
	Invoice struct {
		ID                 int64     `json:"id"`
		RoomID             int64     `json:"roomId"`
		Date               string    `json:"date"`
		Expenses           []Expense `json:"expenses"`
		TotalAmount        Amount    `json:"totalAmount"`
		EachMemberAmount   Amount    `json:"eachMemberAmount"`
		EachMemberOverride *Amount   `json:"eachMemberOverride,omitempty"`
		Status             Status    `json:"status,omitempty"`
		UpdatedAt          string    `json:"updatedAt,omitempty"`
	}

	// InvoiceStatusRecord tracks the payment lifecycle of one invoice,
	// stored independently from the invoice itself.
	InvoiceStatusRecord struct {
		ID        int64  `json:"id"` // invoice id
		Status    Status `json:"status"`
		UpdatedAt string `json:"updatedAt"`
	}

	// Contact identifies the home master managing a room.
	Contact struct {
		ID    int64  `json:"id,omitempty"`
		Name  string `json:"name,omitempty"`
		Phone string `json:"phone,omitempty"`
	}

	Room struct {
		ID              int64    `json:"id"`
		Name            string   `json:"name"`
		MemberCount     int      `json:"memberCount"`
		HomeName        string   `json:"homeName,omitempty"`
		HomeMaster      *Contact `json:"homeMaster,omitempty"`
		CreatedBy       string   `json:"createdBy,omitempty"`
		NextInvoiceDate string   `json:"nextInvoiceDate,omitempty"`
	}

	// Sharing records one member's acknowledgment of a monthly expense.
	Sharing struct {
		Member      Member `json:"member"`
		IsConfirmed bool   `json:"is_confirmed"`
	}

	// MonthlyExpense is an ad-hoc charge with explicit per-member
	// acknowledgment tracking.
	MonthlyExpense struct {
		Name        string    `json:"name"`
		Date        string    `json:"date"`
		Amount      Amount    `json:"amount"`
		Sharing     []Sharing `json:"sharing"`
		Payer       Member    `json:"payer"`
		IsConfirmed bool      `json:"is_confirmed"`
	}
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrInvoiceNotFound   = errors.New("invoice not found")
	ErrMemberNotFound    = errors.New("member not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyPhone        = errors.New("empty phone number")
)

func (r Role) IsValid() bool {
	switch r {
	case RoleHomeMaster, RoleRoomMaster, RoleRoomMember:
		return true
	}
	return false
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(m.PhoneNumber) == "" {
		return ErrEmptyPhone
	}
	if !m.Role.IsValid() {
		return errors.New("invalid role")
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if e.Quantity < 0 {
		return errors.New("negative quantity")
	}
	if e.Price.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// LineTotal returns price multiplied by quantity, exactly.
func (e Expense) LineTotal() Amount {
	return e.Price.MulInt(e.Quantity)
}

var lastID atomic.Int64

// NewID returns a locally unique millisecond-timestamp surrogate id.
// A monotonic guard prevents collisions when several ids are generated
// within the same millisecond.
func NewID() int64 {
	now := time.Now().UnixMilli()
	for {
		last := lastID.Load()
		candidate := now
		if candidate <= last {
			candidate = last + 1
		}
		if lastID.CompareAndSwap(last, candidate) {
			return candidate
		}
	}
}

// NowISO returns the current time in the RFC 3339 form used for all
// persisted dates.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
