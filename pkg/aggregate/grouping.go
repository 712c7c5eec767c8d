// Package aggregate turns half-hourly stores and cost-engine output into
// bucketed series for reporting: a grouping key slices the date range into
// labelled periods, and optional splitters divide each day's values across
// named series.
package aggregate

import (
	"fmt"
	"time"

	"github.com/schoolwatt/schoolwatt/pkg/types"
)

// Grouping selects how a date range is partitioned into buckets.
type Grouping string

const (
	GroupDay          Grouping = "day"
	GroupWeek         Grouping = "week"
	GroupMonth        Grouping = "month"
	GroupYear         Grouping = "year"
	GroupAcademicYear Grouping = "academic_year"
	GroupSchoolWeek   Grouping = "school_week"
	GroupRange        Grouping = "range"
)

// Groupings lists every grouping key, for request validation.
var Groupings = []Grouping{
	GroupDay, GroupWeek, GroupMonth, GroupYear,
	GroupAcademicYear, GroupSchoolWeek, GroupRange,
}

// maxWeekBuckets caps week groupings at a year of complete weeks. 52 weeks is
// 364 days, so the cap always fits inside a trailing-year window.
const maxWeekBuckets = 52

// Period is one bucket's axis label and inclusive date range.
type Period struct {
	Label string
	Range types.DateRange
}

// Periods partitions [start, end] per the grouping key. Week groupings use
// complete Sunday-to-Saturday weeks only: the final bucket is the most recent
// complete week ending on or before end, walking back up to a year of weeks,
// and a partial trailing week is never emitted as a bucket. Month, year and
// academic-year buckets are clamped to [start, end] at the edges.
func (a *Aggregator) Periods(g Grouping, start, end types.Date) ([]Period, error) {
	if end.Before(start) {
		return nil, nil
	}
	switch g {
	case GroupDay:
		var out []Period
		for d := start; !d.After(end); d = d.AddDays(1) {
			out = append(out, Period{Label: d.String(), Range: types.DateRange{Start: d, End: d}})
		}
		return out, nil

	case GroupWeek:
		return weekPeriods(start, end, nil), nil

	case GroupSchoolWeek:
		if a.Classifier == nil {
			return nil, fmt.Errorf("school week grouping requires a holiday calendar")
		}
		return weekPeriods(start, end, a.termTimeWeek), nil

	case GroupMonth:
		var out []Period
		for first := types.NewDate(start.Year, start.Month, 1); !first.After(end); first = first.AddDays(first.DaysInMonth()) {
			r := clamp(first, first.AddDays(first.DaysInMonth()-1), start, end)
			out = append(out, Period{
				Label: fmt.Sprintf("%s %d", first.Month.String()[:3], first.Year),
				Range: r,
			})
		}
		return out, nil

	case GroupYear:
		var out []Period
		for y := start.Year; y <= end.Year; y++ {
			out = append(out, Period{
				Label: fmt.Sprintf("%d", y),
				Range: clamp(types.NewDate(y, time.January, 1), types.NewDate(y, time.December, 31), start, end),
			})
		}
		return out, nil

	case GroupAcademicYear:
		month := a.AcademicYearStartMonth
		if month == 0 {
			month = time.September
		}
		firstYear := start.Year
		if start.Month < month {
			firstYear--
		}
		var out []Period
		for y := firstYear; ; y++ {
			ayStart := types.NewDate(y, month, 1)
			if ayStart.After(end) {
				break
			}
			out = append(out, Period{
				Label: fmt.Sprintf("%d/%02d", y, (y+1)%100),
				Range: clamp(ayStart, types.NewDate(y+1, month, 1).AddDays(-1), start, end),
			})
		}
		return out, nil

	case GroupRange:
		return []Period{{
			Label: fmt.Sprintf("%s to %s", start, end),
			Range: types.DateRange{Start: start, End: end},
		}}, nil

	default:
		return nil, fmt.Errorf("unknown grouping %q", g)
	}
}

// weekPeriods walks backward from the most recent Saturday on or before end,
// collecting complete weeks whose Sunday is not before start, newest last.
// keep, when set, filters weeks out entirely (used for term-time-only weeks).
func weekPeriods(start, end types.Date, keep func(types.DateRange) bool) []Period {
	saturday := end.AddDays(-int((end.Weekday() + 1) % 7))
	var reversed []Period
	for walked := 0; walked < maxWeekBuckets; walked++ {
		sunday := saturday.AddDays(-6)
		if sunday.Before(start) {
			break
		}
		r := types.DateRange{Start: sunday, End: saturday}
		if keep == nil || keep(r) {
			reversed = append(reversed, Period{Label: "w/c " + sunday.String(), Range: r})
		}
		saturday = saturday.AddDays(-7)
	}
	out := make([]Period, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		out = append(out, reversed[i])
	}
	return out
}

// termTimeWeek reports whether any weekday of the week falls outside a
// holiday period.
func (a *Aggregator) termTimeWeek(week types.DateRange) bool {
	for d := week.Start; !d.After(week.End); d = d.AddDays(1) {
		if d.Weekend() {
			continue
		}
		if _, holiday := a.Classifier.Holiday(d); !holiday {
			return true
		}
	}
	return false
}

func clamp(first, last, start, end types.Date) types.DateRange {
	if first.Before(start) {
		first = start
	}
	if last.After(end) {
		last = end
	}
	return types.DateRange{Start: first, End: last}
}
