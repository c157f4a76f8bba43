package core

import (
	"encoding/csv"
	"strings"
)

var csvHeader = []string{"Expense ID", "Date", "Description", "Amount", "Category", "Payer", "Member", "Split Amount"}

// ExportCSV renders the ledger with one data row per positive split.
// Fields containing commas, quotes, or newlines are quoted with internal
// quotes doubled. Amounts are two-place decimals; the split-amount column
// of an expense's rows sums exactly to its total column.
func ExportCSV(expenses []Expense, members []Member, categories []Category) string {
	memberNames := make(map[string]string, len(members))
	for _, m := range members {
		memberNames[m.ID] = m.Name
	}
	categoryNames := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}
	name := func(names map[string]string, id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)
	w.Write(csvHeader)
	for _, e := range expenses {
		for _, s := range e.Splits {
			if s.Amount.Cents <= 0 {
				continue
			}
			w.Write([]string{
				e.ID,
				e.Date.String(),
				e.Description,
				e.Amount.DecimalString(),
				name(categoryNames, e.CategoryID),
				name(memberNames, e.PayerID),
				name(memberNames, s.MemberID),
				s.Amount.DecimalString(),
			})
		}
	}
	w.Flush()
	return buf.String()
}
