// Package amr holds half-hourly automated-meter-reading data: a
// date-indexed container of 48 half-hour values per day for one meter and one
// stream (consumption, temperature, solar yield or derived cost).
package amr

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/schoolwatt/schoolwatt/pkg/log"
	"github.com/schoolwatt/schoolwatt/pkg/types"
)

// HalfHoursPerDay is the number of readings in one day of AMR data.
const HalfHoursPerDay = 48

// DayReadings is one validated day of half-hourly values. Entries listed in
// Missing were absent or non-numeric in the source feed and hold zero; the
// day is still usable, just partial.
type DayReadings struct {
	Values  [HalfHoursPerDay]float64
	Missing []int
}

// Total returns the sum of the day's values. Missing half-hours contribute
// nothing.
func (r DayReadings) Total() float64 {
	var total float64
	for _, v := range r.Values {
		total += v
	}
	return total
}

// Average returns the mean of the day's 48 slots.
func (r DayReadings) Average() float64 {
	return r.Total() / HalfHoursPerDay
}

// Partial reports whether any half-hours were missing from the source feed.
func (r DayReadings) Partial() bool {
	return len(r.Missing) > 0
}

// HalfHourlyStore maps dates to half-hourly readings for a single meter
// stream. Dates are not assumed contiguous: a date inside the observed
// [StartDate, EndDate] bounds can still be missing, and queries distinguish
// "no data" from zero.
//
// A store is owned by the meter that produced it and is not safe for
// concurrent mutation; each report calculation works on its own instances.
type HalfHourlyStore struct {
	days  map[types.Date]DayReadings
	start types.Date
	end   types.Date

	// per-day total cache, invalidated on Add
	totals map[types.Date]float64
}

// NewStore returns an empty store.
func NewStore() *HalfHourlyStore {
	return &HalfHourlyStore{
		days:   make(map[types.Date]DayReadings),
		totals: make(map[types.Date]float64),
	}
}

// Add validates and stores one day of readings. Non-numeric entries (NaN or
// infinite) and entries beyond the first 48 are dropped; a short slice is
// padded. Either way the day is kept and the gaps are logged, since real
// meter feeds routinely drop individual half-hours. Adding a date that
// already exists supersedes the previous record.
func (s *HalfHourlyStore) Add(ctx context.Context, date types.Date, values []float64) {
	var day DayReadings
	if len(values) > HalfHoursPerDay {
		log.Ctx(ctx).WarnContext(ctx, "reading day has too many half-hours, truncating",
			slog.String("date", date.String()), slog.Int("count", len(values)))
		values = values[:HalfHoursPerDay]
	}
	for i := 0; i < HalfHoursPerDay; i++ {
		if i >= len(values) || math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			day.Missing = append(day.Missing, i)
			continue
		}
		day.Values[i] = values[i]
	}
	if day.Partial() {
		log.Ctx(ctx).WarnContext(ctx, "reading day is partially missing",
			slog.String("date", date.String()), slog.Int("missing", len(day.Missing)))
	}

	s.days[date] = day
	delete(s.totals, date)

	if len(s.days) == 1 {
		s.start, s.end = date, date
		return
	}
	if date.Before(s.start) {
		s.start = date
	}
	if date.After(s.end) {
		s.end = date
	}
}

// Empty reports whether the store has no days at all.
func (s *HalfHourlyStore) Empty() bool {
	return len(s.days) == 0
}

// Bounds returns the observed min and max dates. ok is false for an empty
// store.
func (s *HalfHourlyStore) Bounds() (start, end types.Date, ok bool) {
	if s.Empty() {
		return types.Date{}, types.Date{}, false
	}
	return s.start, s.end, true
}

// DateExists reports whether the store holds readings for the date.
func (s *HalfHourlyStore) DateExists(date types.Date) bool {
	_, ok := s.days[date]
	return ok
}

// DateMissing is the inverse of DateExists. Callers must use these membership
// queries rather than assuming contiguous coverage between the bounds.
func (s *HalfHourlyStore) DateMissing(date types.Date) bool {
	return !s.DateExists(date)
}

// Day returns the readings for a date.
func (s *HalfHourlyStore) Day(date types.Date) (DayReadings, bool) {
	day, ok := s.days[date]
	return day, ok
}

// Dates returns every stored date in ascending order.
func (s *HalfHourlyStore) Dates() []types.Date {
	dates := make([]types.Date, 0, len(s.days))
	for d := range s.days {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// OneDayTotal returns the sum of a day's 48 values. It returns
// ErrRangeUnavailable for a date outside the store's bounds and
// ErrInsufficientData for a missing date within them; it never fabricates a
// zero for an absent day.
func (s *HalfHourlyStore) OneDayTotal(date types.Date) (float64, error) {
	if s.Empty() || date.Before(s.start) || date.After(s.end) {
		return 0, types.ErrRangeUnavailable
	}
	if total, ok := s.totals[date]; ok {
		return total, nil
	}
	day, ok := s.days[date]
	if !ok {
		return 0, types.ErrInsufficientData
	}
	total := day.Total()
	s.totals[date] = total
	return total, nil
}

// Average returns the mean half-hourly value for a day, with the same
// missing-data semantics as OneDayTotal.
func (s *HalfHourlyStore) Average(date types.Date) (float64, error) {
	total, err := s.OneDayTotal(date)
	if err != nil {
		return 0, err
	}
	return total / HalfHoursPerDay, nil
}

// KWAt converts the kWh reading in one half-hour slot to average kW.
func (s *HalfHourlyStore) KWAt(date types.Date, halfHour int) (float64, error) {
	day, ok := s.days[date]
	if !ok {
		return 0, types.ErrInsufficientData
	}
	return day.Values[halfHour] * 2.0, nil
}

// TotalInRange sums all readings in [start, end]. If the requested range is
// not fully inside the store's bounds it returns ErrRangeUnavailable so
// callers cannot mistake out-of-range for zero usage. Dates missing inside
// the bounds are skipped; use DateExists to detect interior gaps when they
// matter.
func (s *HalfHourlyStore) TotalInRange(start, end types.Date) (float64, error) {
	if err := s.checkRange(start, end); err != nil {
		return 0, err
	}
	var total float64
	for d := start; !d.After(end); d = d.AddDays(1) {
		dayTotal, err := s.OneDayTotal(d)
		if err != nil {
			continue
		}
		total += dayTotal
	}
	return total, nil
}

// AverageInRange returns the mean daily total over the days present in
// [start, end], with the same availability semantics as TotalInRange.
func (s *HalfHourlyStore) AverageInRange(start, end types.Date) (float64, error) {
	if err := s.checkRange(start, end); err != nil {
		return 0, err
	}
	var total float64
	var count int
	for d := start; !d.After(end); d = d.AddDays(1) {
		dayTotal, err := s.OneDayTotal(d)
		if err != nil {
			continue
		}
		total += dayTotal
		count++
	}
	if count == 0 {
		return 0, types.ErrInsufficientData
	}
	return total / float64(count), nil
}

func (s *HalfHourlyStore) checkRange(start, end types.Date) error {
	if s.Empty() {
		return types.ErrRangeUnavailable
	}
	if end.Before(start) {
		return types.ErrRangeUnavailable
	}
	if start.Before(s.start) || end.After(s.end) {
		return types.ErrRangeUnavailable
	}
	return nil
}
