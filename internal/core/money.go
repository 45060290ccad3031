// Package core provides the domain model and exact money arithmetic.
//
// Amounts are non-negative integers in minor currency units, held as
// arbitrary-precision decimals. Any representation of an amount as a
// binary floating-point value is a defect: amounts enter as integers or
// digit strings and leave as decimal strings.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is an exact, arbitrary-precision monetary value in minor
// currency units. The zero value is zero.
type Amount struct {
	d decimal.Decimal
}

// NewAmount returns an Amount holding the given number of minor units.
func NewAmount(units int64) Amount {
	return Amount{d: decimal.NewFromInt(units)}
}

// ParseAmount extracts an integer amount from free-form input. All
// non-digit characters are stripped before parsing; absent or
// unparseable input yields zero. It never fails.
//
// Examples:
//
//	ParseAmount("5.000.000") -> 5000000
//	ParseAmount("Rp 300,000") -> 300000
//	ParseAmount("") -> 0
func ParseAmount(s string) Amount {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimLeft(b.String(), "0")
	if digits == "" {
		return Amount{}
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return Amount{}
	}
	return Amount{d: d}
}

// InvoiceTotal sums price*quantity over the expense list, exactly.
func InvoiceTotal(expenses []Expense) Amount {
	total := Amount{}
	for _, e := range expenses {
		total = total.Add(e.LineTotal())
	}
	return total
}

// Share returns the per-member amount for a total split over
// memberCount members using integer floor division. A member count
// below one divides by one; the remainder is not distributed.
func Share(total Amount, memberCount int) Amount {
	if memberCount < 1 {
		memberCount = 1
	}
	q, _ := total.d.QuoRem(decimal.NewFromInt(int64(memberCount)), 0)
	return Amount{d: q}
}

func (a Amount) Add(b Amount) Amount {
	return Amount{d: a.d.Add(b.d)}
}

func (a Amount) MulInt(n int) Amount {
	return Amount{d: a.d.Mul(decimal.NewFromInt(int64(n)))}
}

// Cmp compares a and b: -1 if a < b, 0 if equal, +1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.d.Cmp(b.d)
}

func (a Amount) Equal(b Amount) bool {
	return a.d.Cmp(b.d) == 0
}

func (a Amount) Sign() int {
	return a.d.Sign()
}

func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// String returns the plain decimal digit string, e.g. "10400000".
func (a Amount) String() string {
	return a.d.String()
}

// Grouped renders the amount with thousands separators for display,
// e.g. "10,400,000". Pure formatting; amounts are already integral.
func (a Amount) Grouped() string {
	s := a.d.String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// MarshalJSON serializes the amount as a quoted decimal string so the
// persisted form round-trips exactly regardless of magnitude.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.d.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted decimal string or a bare integer.
// Legacy values with stray formatting degrade through ParseAmount
// rather than failing the surrounding document.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*a = Amount{}
		return nil
	}
	if d, err := decimal.NewFromString(s); err == nil && d.IsInteger() {
		*a = Amount{d: d}
		return nil
	}
	*a = ParseAmount(s)
	return nil
}
