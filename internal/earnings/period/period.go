// Package period resolves symbolic reporting periods into concrete intervals.
package period

import (
	"strings"
	"time"

	"github.com/smallbiznis/royalty/internal/earnings/domain"
)

// Selector is a reporting period plus the bounds used when it is custom.
type Selector struct {
	Period domain.Period
	Custom domain.CustomRange
}

// ParsePeriod maps a query value to a Period. Empty selects all time.
func ParsePeriod(value string) (domain.Period, error) {
	switch p := domain.Period(strings.ToLower(strings.TrimSpace(value))); p {
	case "":
		return domain.PeriodAll, nil
	case domain.PeriodAll, domain.PeriodThisMonth, domain.PeriodLastMonth, domain.PeriodLast3Months, domain.PeriodCustom:
		return p, nil
	default:
		return "", domain.ErrInvalidPeriod
	}
}

// Resolve returns the inclusive interval for sel relative to now, or nil for
// an unbounded window. Month boundaries are taken in now's location.
func Resolve(sel Selector, now time.Time) *domain.Interval {
	switch sel.Period {
	case domain.PeriodThisMonth:
		return monthSpan(StartOfMonth(now), 1)
	case domain.PeriodLastMonth:
		return monthSpan(StartOfMonth(now).AddDate(0, -1, 0), 1)
	case domain.PeriodLast3Months:
		return monthSpan(StartOfMonth(now).AddDate(0, -2, 0), 3)
	case domain.PeriodCustom:
		if sel.Custom.From == nil && sel.Custom.To == nil {
			return nil
		}
		iv := &domain.Interval{}
		if sel.Custom.From != nil {
			from := *sel.Custom.From
			iv.From = &from
		}
		if sel.Custom.To != nil {
			to := *sel.Custom.To
			iv.To = &to
		}
		return iv
	default:
		return nil
	}
}

// StartOfMonth truncates t to the first instant of its month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the last representable instant of t's month.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

func monthSpan(start time.Time, months int) *domain.Interval {
	end := start.AddDate(0, months, 0).Add(-time.Nanosecond)
	return &domain.Interval{From: &start, To: &end}
}
