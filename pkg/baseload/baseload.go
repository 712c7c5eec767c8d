// Package baseload estimates the always-on power draw of a meter from its
// half-hourly consumption. Baseload is reported in kW, converted from
// half-hour kWh readings.
package baseload

import (
	"sort"

	"github.com/schoolwatt/schoolwatt/pkg/amr"
	"github.com/schoolwatt/schoolwatt/pkg/meter"
	"github.com/schoolwatt/schoolwatt/pkg/types"
)

// lowestCount is how many of a day's half-hours the statistical estimator
// averages.
const lowestCount = 8

// overnightStart and overnightEnd bound the late-evening window (20:30 to
// midnight) used when daytime readings cannot be trusted.
const (
	overnightStart = 41
	overnightEnd   = amr.HalfHoursPerDay
)

// Calculator estimates baseload power for one meter stream.
type Calculator interface {
	// BaseloadKW estimates the always-on draw on one day, in kW.
	BaseloadKW(date types.Date) (float64, error)
	// AverageBaseloadKWRange averages the daily estimate over [start, end].
	// An empty window returns 0; a day missing inside the window returns
	// ErrInsufficientData, since an average over an unknown mix of days
	// would be misleading.
	AverageBaseloadKWRange(start, end types.Date) (float64, error)
}

// Statistical estimates baseload as the mean of the day's lowest eight
// half-hours. It is robust to irregular occupancy but breaks down on meters
// with synthesised solar streams, where midday values go negative or to zero
// for reasons unrelated to the building's standing load.
type Statistical struct {
	store *amr.HalfHourlyStore
}

// NewStatistical returns the lowest-eight estimator over the store.
func NewStatistical(store *amr.HalfHourlyStore) *Statistical {
	return &Statistical{store: store}
}

func (s *Statistical) BaseloadKW(date types.Date) (float64, error) {
	day, err := dayFor(s.store, date)
	if err != nil {
		return 0, err
	}
	present := presentValues(day, 0, amr.HalfHoursPerDay)
	if len(present) < lowestCount {
		return 0, types.ErrInsufficientData
	}
	sort.Float64s(present)
	var total float64
	for _, v := range present[:lowestCount] {
		total += v
	}
	return total / lowestCount * 2.0, nil
}

func (s *Statistical) AverageBaseloadKWRange(start, end types.Date) (float64, error) {
	return averageOver(s, start, end)
}

// Overnight estimates baseload as the mean draw between 20:30 and midnight,
// when schools are shut and solar yield is zero. Used for meters whose
// daytime stream is synthesised.
type Overnight struct {
	store *amr.HalfHourlyStore
}

// NewOvernight returns the late-evening estimator over the store.
func NewOvernight(store *amr.HalfHourlyStore) *Overnight {
	return &Overnight{store: store}
}

func (o *Overnight) BaseloadKW(date types.Date) (float64, error) {
	day, err := dayFor(o.store, date)
	if err != nil {
		return 0, err
	}
	present := presentValues(day, overnightStart, overnightEnd)
	if len(present) == 0 {
		return 0, types.ErrInsufficientData
	}
	var total float64
	for _, v := range present {
		total += v
	}
	return total / float64(len(present)) * 2.0, nil
}

func (o *Overnight) AverageBaseloadKWRange(start, end types.Date) (float64, error) {
	return averageOver(o, start, end)
}

// CalculatorFor picks the right estimator for a meter: the overnight window
// for solar-synthetic streams, the statistical one otherwise. Callers that
// know better can construct either directly.
func CalculatorFor(m *meter.Meter) Calculator {
	if m.Info.SolarSynthetic {
		return NewOvernight(m.Store)
	}
	return NewStatistical(m.Store)
}

// TrailingYearRange returns the trailing-365-day window ending at the store's
// last date, clamped to the store's bounds. ok is false for an empty store.
func TrailingYearRange(store *amr.HalfHourlyStore) (types.DateRange, bool) {
	start, end, ok := store.Bounds()
	if !ok {
		return types.DateRange{}, false
	}
	from := end.AddDays(-364)
	if from.Before(start) {
		from = start
	}
	return types.DateRange{Start: from, End: end}, true
}

func dayFor(store *amr.HalfHourlyStore, date types.Date) (amr.DayReadings, error) {
	// OneDayTotal classifies absent days for us: out of bounds vs gap
	if _, err := store.OneDayTotal(date); err != nil {
		return amr.DayReadings{}, err
	}
	day, _ := store.Day(date)
	return day, nil
}

// presentValues returns the values in [from, to) whose half-hours actually
// arrived from the feed.
func presentValues(day amr.DayReadings, from, to int) []float64 {
	missing := make(map[int]bool, len(day.Missing))
	for _, i := range day.Missing {
		missing[i] = true
	}
	out := make([]float64, 0, to-from)
	for i := from; i < to; i++ {
		if !missing[i] {
			out = append(out, day.Values[i])
		}
	}
	return out
}

func averageOver(c Calculator, start, end types.Date) (float64, error) {
	var total float64
	var count int
	for d := start; !d.After(end); d = d.AddDays(1) {
		kw, err := c.BaseloadKW(d)
		if err != nil {
			return 0, err
		}
		total += kw
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return total / float64(count), nil
}
