package portfolio

import (
	"sort"
	"time"

	"github.com/aristath/backtest/internal/domain"
)

// UnifyDates merges the dates of every non-cash series into one sorted,
// de-duplicated axis restricted to [start, end].
//
// A portfolio whose only usable holding is cash has no timeline of its own,
// so the axis collapses to the single processing date now.
func UnifyDates(series map[string]domain.PriceSeries, start, end time.Time, hasCash bool, now time.Time) ([]time.Time, error) {
	start, end = domain.Day(start), domain.Day(end)

	seen := make(map[time.Time]struct{})
	for symbol, s := range series {
		if domain.IsCash(symbol) {
			continue
		}
		for _, p := range s.Points {
			if p.Date.Before(start) || p.Date.After(end) {
				continue
			}
			seen[p.Date] = struct{}{}
		}
	}

	if len(seen) == 0 {
		if hasCash {
			return []time.Time{domain.Day(now)}, nil
		}
		return nil, newError(ErrNoValidData, "no price data between %s and %s",
			start.Format(domain.DateLayout), end.Format(domain.DateLayout))
	}

	axis := make([]time.Time, 0, len(seen))
	for d := range seen {
		axis = append(axis, d)
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })
	return axis, nil
}

// calendarDays lists every day from start to end inclusive.
func calendarDays(start, end time.Time) []time.Time {
	start, end = domain.Day(start), domain.Day(end)
	if end.Before(start) {
		return []time.Time{start}
	}
	days := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
