package calendar

import "time"

// Calendar applies business-day rules. Only the weekend rule is modeled;
// a custom predicate can exclude further dates (e.g. a real holiday feed).
type Calendar struct {
	isHoliday func(t time.Time) bool
}

// Weekdays returns a calendar where every Monday-Friday is a business day.
func Weekdays() Calendar {
	return Calendar{}
}

// New returns a calendar that additionally treats dates matching isHoliday
// as non-business days.
func New(isHoliday func(t time.Time) bool) Calendar {
	return Calendar{isHoliday: isHoliday}
}

// IsBusinessDay checks the weekend rule and the optional holiday predicate.
func (c Calendar) IsBusinessDay(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	if c.isHoliday != nil && c.isHoliday(t) {
		return false
	}
	return true
}

// Adjust applies Modified Following: roll forward to the next business day,
// unless that crosses a month boundary, in which case roll backward.
func (c Calendar) Adjust(t time.Time) time.Time {
	origMonth := t.Month()
	for !c.IsBusinessDay(t) {
		t = t.AddDate(0, 0, 1)
	}
	if t.Month() != origMonth {
		t = t.AddDate(0, 0, -1)
		for !c.IsBusinessDay(t) {
			t = t.AddDate(0, 0, -1)
		}
	}
	return t
}

// Following rolls forward to the next business day (no month preservation).
func (c Calendar) Following(t time.Time) time.Time {
	for !c.IsBusinessDay(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative).
func (c Calendar) AddBusinessDays(t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if c.IsBusinessDay(t) {
			n -= step
		}
	}
	return t
}

// DaysInMonth returns the number of calendar days in the month containing t.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsLastCalendarDay reports whether t is the last calendar day of its month.
func IsLastCalendarDay(t time.Time) bool {
	return t.Day() == DaysInMonth(t)
}

// LastCalendarDayOfMonth returns the last calendar day of the month containing t.
func LastCalendarDayOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}
