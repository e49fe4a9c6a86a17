package core

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidMonth = errors.New("invalid month")

// MonthOption is an entry of a month picker.
type MonthOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ParseMonth parses a YYYY-MM key into the first day of that month (UTC).
func ParseMonth(month string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, month)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q", ErrInvalidMonth, month)
	}
	return t, nil
}

// DaysInMonth returns the number of calendar days in a YYYY-MM month.
func DaysInMonth(month string) (int, error) {
	first, err := ParseMonth(month)
	if err != nil {
		return 0, err
	}
	return first.AddDate(0, 1, -1).Day(), nil
}

// Today formats now as a storage date.
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}

// CurrentMonth formats now as a month key.
func CurrentMonth(now time.Time) string {
	return now.UTC().Format(MonthLayout)
}

// MonthOptions returns the n months ending at now, newest first.
func MonthOptions(now time.Time, n int) []MonthOption {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	out := make([]MonthOption, 0, n)
	for i := 0; i < n; i++ {
		d := first.AddDate(0, -i, 0)
		out = append(out, MonthOption{
			Value: d.Format(MonthLayout),
			Label: d.Format("January 2006"),
		})
	}
	return out
}

// shortMonthLabel returns "Jan".."Dec" for a month key, or the key itself when
// it cannot be parsed.
func shortMonthLabel(month string) string {
	t, err := ParseMonth(month)
	if err != nil {
		return month
	}
	return t.Format("Jan")
}
