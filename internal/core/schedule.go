package core

// NextAfter returns the due date one period after d. Monthly and yearly
// steps clamp to the last day of the target month, so a due date of
// Jan 31 lands on Feb 28 (or 29). An unknown frequency returns d
// unchanged; callers validate frequencies before scheduling.
func NextAfter(d Date, f Frequency) Date {
	switch f {
	case Weekly:
		t := d.Time.AddDate(0, 0, 7)
		return NewDate(t.Year(), int(t.Month()), t.Day())
	case Monthly:
		year, month := d.Year(), d.Month()+1
		if month > 12 {
			month = 1
			year++
		}
		day := d.Day()
		if last := daysInMonth(year, month); day > last {
			day = last
		}
		return NewDate(year, month, day)
	case Yearly:
		year := d.Year() + 1
		day := d.Day()
		if last := daysInMonth(year, d.Month()); day > last {
			day = last
		}
		return NewDate(year, d.Month(), day)
	default:
		return d
	}
}
