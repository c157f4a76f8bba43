package core

import "time"

// TrendSeries holds two cumulative daily-spend series, both sized to the
// current month's day count. Current entries after today are nil: future
// days have no data, not zero. The previous month's series is padded
// with its last cumulative value or truncated to match the length.
type TrendSeries struct {
	Labels   []int    `json:"labels"`
	Current  []*int64 `json:"currentCents"`
	Previous []int64  `json:"previousCents"`
}

// BuildTrendSeries computes cumulative spend by day of month for the
// month of today and for the month before it. In January the previous
// month is December of the prior year.
func BuildTrendSeries(expenses []Expense, today Date) TrendSeries {
	curYear, curMonth := today.Year(), today.Month()
	prevYear, prevMonth := curYear, curMonth-1
	if prevMonth == 0 {
		prevMonth = 12
		prevYear--
	}
	curDays := daysInMonth(curYear, curMonth)
	prevDays := daysInMonth(prevYear, prevMonth)

	curDaily := make([]int64, curDays+1)
	prevDaily := make([]int64, prevDays+1)
	for _, e := range expenses {
		switch {
		case e.Date.Year() == curYear && e.Date.Month() == curMonth:
			curDaily[e.Date.Day()] += e.Amount.Cents
		case e.Date.Year() == prevYear && e.Date.Month() == prevMonth:
			prevDaily[e.Date.Day()] += e.Amount.Cents
		}
	}

	series := TrendSeries{
		Labels:   make([]int, curDays),
		Current:  make([]*int64, curDays),
		Previous: make([]int64, curDays),
	}
	var running int64
	for day := 1; day <= curDays; day++ {
		series.Labels[day-1] = day
		running += curDaily[day]
		if day <= today.Day() {
			v := running
			series.Current[day-1] = &v
		}
	}
	running = 0
	for day := 1; day <= curDays; day++ {
		if day <= prevDays {
			running += prevDaily[day]
		}
		series.Previous[day-1] = running
	}
	return series
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
