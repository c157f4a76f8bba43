package core

// MonthAggregate summarizes one calendar month of spending. Category and
// grand totals come from full expense amounts; member totals come from
// split amounts only, since a payer may not bear the full cost.
type MonthAggregate struct {
	Year        int              `json:"year"`
	Month       int              `json:"month"` // 1-12
	Total       Money            `json:"totalCents"`
	PerCategory map[string]Money `json:"perCategory"`
	PerMember   map[string]Money `json:"perMember"`
}

// AggregateMonth filters expenses to the given month and year and builds
// per-category, per-member, and grand totals.
func AggregateMonth(expenses []Expense, month, year int) MonthAggregate {
	agg := MonthAggregate{
		Year:        year,
		Month:       month,
		PerCategory: make(map[string]Money),
		PerMember:   make(map[string]Money),
	}
	for _, e := range expenses {
		if e.Date.Month() != month || e.Date.Year() != year {
			continue
		}
		agg.Total.Cents += e.Amount.Cents
		byCat := agg.PerCategory[e.CategoryID]
		byCat.Cents += e.Amount.Cents
		agg.PerCategory[e.CategoryID] = byCat
		for _, s := range e.Splits {
			byMember := agg.PerMember[s.MemberID]
			byMember.Cents += s.Amount.Cents
			agg.PerMember[s.MemberID] = byMember
		}
	}
	return agg
}
