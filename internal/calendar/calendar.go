// Package calendar implements the month arithmetic shared by every calculation.
// Months are "YYYY-MM" strings; they sort lexicographically in chronological
// order, which the range and boundary checks rely on.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PaymentCutoffDay is the day of month by which the previous month's payroll is disbursed.
const PaymentCutoffDay = 10

// MinYear and MaxYear bound the years ParseMonthStrict accepts. Within them every
// month and its successor format as four-digit years.
const (
	MinYear = 1000
	MaxYear = 9998
)

const (
	monthLayout = "2006-01"
	dateLayout  = "2006-01-02"
)

var (
	// ErrMalformedMonth is returned by ParseMonthStrict for anything that is not YYYY-MM.
	ErrMalformedMonth = errors.New("malformed month")
	// ErrMalformedDate is returned by ValidateDate for anything that is not YYYY-MM-DD.
	ErrMalformedDate = errors.New("malformed date")
)

// FormatMonth renders a year and zero-based month as "YYYY-MM".
func FormatMonth(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month+1)
}

// ParseMonth splits "YYYY-MM" into a year and zero-based month.
// It never fails: a missing or non-numeric year becomes 0 and a missing or
// non-numeric month becomes January. Use ParseMonthStrict on untrusted input.
func ParseMonth(s string) (int, int) {
	parts := strings.Split(s, "-")

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		year = 0
	}

	month := 1
	if len(parts) > 1 {
		if m, err := strconv.Atoi(parts[1]); err == nil {
			month = m
		}
	}

	return year, month - 1
}

// ParseMonthStrict is ParseMonth for input crossing a trust boundary.
// Years outside [MinYear, MaxYear] are rejected.
func ParseMonthStrict(s string) (int, int, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil || len(s) != len(monthLayout) {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedMonth, s)
	}
	if t.Year() < MinYear || t.Year() > MaxYear {
		return 0, 0, fmt.Errorf("%w: %q: year must be between %d and %d", ErrMalformedMonth, s, MinYear, MaxYear)
	}
	return t.Year(), int(t.Month()) - 1, nil
}

// ValidateDate checks that s is a real calendar date in YYYY-MM-DD form.
func ValidateDate(s string) error {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	return nil
}

// MonthOf returns the "YYYY-MM" prefix of a date string, or "" for an empty date.
func MonthOf(date string) string {
	if len(date) < len(monthLayout) {
		return date
	}
	return date[:len(monthLayout)]
}

// AddMonths shifts a month by n (possibly negative) calendar months.
func AddMonths(s string, n int) string {
	year, month := ParseMonth(s)
	t := time.Date(year, time.Month(month+n+1), 1, 0, 0, 0, 0, time.UTC)
	return FormatMonth(t.Year(), int(t.Month())-1)
}

// MonthRange lists every month from start to end inclusive, ascending.
// It returns nil when start is after end. Bounds are compared as parsed
// (year, month) pairs, so the range always terminates.
func MonthRange(start, end string) []string {
	first := monthIndex(ParseMonth(start))
	last := monthIndex(ParseMonth(end))
	if first > last {
		return nil
	}

	months := make([]string, 0, last-first+1)
	for i := first; i <= last; i++ {
		months = append(months, FormatMonth(floorDiv(i, 12), i-floorDiv(i, 12)*12))
	}
	return months
}

// monthIndex counts months since year 0, normalizing out-of-range months.
func monthIndex(year, month int) int {
	return year*12 + month
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// CountMondays counts the Mondays (sprint starts) of a month.
func CountMondays(year, month int) int {
	first := time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()

	count := 0
	for day := 0; day < days; day++ {
		if first.AddDate(0, 0, day).Weekday() == time.Monday {
			count++
		}
	}
	return count
}

// CountMondaysIn is CountMondays for a "YYYY-MM" month.
func CountMondaysIn(month string) int {
	return CountMondays(ParseMonth(month))
}

// LastConfirmedMonth is the latest month whose payroll is treated as settled at now.
// Month M is paid by the 10th of M+1, so after the cutoff day the previous month
// is confirmed; until then confirmation lags two months.
func LastConfirmedMonth(now time.Time) string {
	back := 2
	if now.Day() > PaymentCutoffDay {
		back = 1
	}
	t := time.Date(now.Year(), now.Month()-time.Month(back), 1, 0, 0, 0, 0, time.UTC)
	return FormatMonth(t.Year(), int(t.Month())-1)
}

// FirstProjectedMonth is the month right after LastConfirmedMonth.
func FirstProjectedMonth(now time.Time) string {
	return AddMonths(LastConfirmedMonth(now), 1)
}
