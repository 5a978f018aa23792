package schema

import (
	"fmt"
	"strings"
	"time"
)

// Day truncates a time to midnight UTC of the same calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseInputDate parses a user supplied date in YYYY/MM/DD form (leading zeros optional).
func ParseInputDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(InputDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY/MM/DD: %w", s, err)
	}
	return Day(t), nil
}

// FormatFlagDate renders a service date as YYYY/M/D without zero padding.
func FormatFlagDate(t time.Time) string {
	return t.Format(FlagDateLayout)
}

// TernaryOf returns the ternary bucket of a day of month: 1-10, 11-20, 21-end.
func TernaryOf(day int) int {
	switch {
	case day <= 10:
		return 1
	case day <= 20:
		return 2
	default:
		return 3
	}
}

// PeriodOf computes the service period bucket of a date. ServiceKey is left zero.
func PeriodOf(date time.Time) ServicePeriod {
	y, m, d := date.Date()
	return ServicePeriod{Month: int(m), Year: y, Ternary: TernaryOf(d)}
}

// Validate checks the bucket ranges enforced by the service_periods table.
func (p ServicePeriod) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("month %d out of range 1..12", p.Month)
	}
	if p.Year <= 1700 {
		return fmt.Errorf("year %d must be after 1700", p.Year)
	}
	if p.Ternary < 1 || p.Ternary > 3 {
		return fmt.Errorf("ternary %d out of range 1..3", p.Ternary)
	}
	return nil
}

// NewServiceDateRow builds one line of the service_periods flat file.
func NewServiceDateRow(date time.Time) ServiceDateRow {
	p := PeriodOf(date)
	return ServiceDateRow{
		ServiceDate: FormatFlagDate(date),
		Month:       p.Month,
		Year:        p.Year,
		Ternary:     p.Ternary,
	}
}
