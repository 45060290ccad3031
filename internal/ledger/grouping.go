package ledger

import (
	"fmt"

	"sharinghome/internal/core"
)

// GroupMonthly collapses monthly expenses that share a name and payer
// into one row, summing amounts and concatenating the sharing lists.
// Grouping happens at read time only; the stored entries are untouched.
// Rows keep the order of their first occurrence.
func GroupMonthly(entries []core.MonthlyExpense) []core.MonthlyExpense {
	index := make(map[string]int, len(entries))
	grouped := make([]core.MonthlyExpense, 0, len(entries))

	for _, e := range entries {
		key := fmt.Sprintf("%s::%d", e.Name, e.Payer.ID)
		if i, ok := index[key]; ok {
			g := &grouped[i]
			g.Amount = g.Amount.Add(e.Amount)
			g.Sharing = append(g.Sharing, e.Sharing...)
			g.IsConfirmed = g.IsConfirmed && e.IsConfirmed
			continue
		}
		index[key] = len(grouped)
		copied := e
		copied.Sharing = append([]core.Sharing(nil), e.Sharing...)
		grouped = append(grouped, copied)
	}
	return grouped
}
