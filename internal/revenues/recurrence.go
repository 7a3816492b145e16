package revenues

import "time"

func (r Recurrence) months() int {
	switch r {
	case RecurrenceMonthly:
		return 1
	case RecurrenceQuarterly:
		return 3
	case RecurrenceYearly:
		return 12
	default:
		return 0
	}
}

// NextOccurrence returns the occurrence following from, keeping anchorDay where the
// target month has it and clamping to the month end otherwise (Jan 31 -> Feb 28 -> Mar 31).
func NextOccurrence(from time.Time, anchorDay int, r Recurrence) (time.Time, bool) {
	step := r.months()
	if step == 0 {
		return time.Time{}, false
	}
	first := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, step, 0)
	day := anchorDay
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC), true
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
