package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/schoolwatt/schoolwatt/pkg/amr"
	"github.com/schoolwatt/schoolwatt/pkg/calendar"
	"github.com/schoolwatt/schoolwatt/pkg/meter"
	"github.com/schoolwatt/schoolwatt/pkg/types"
)

// Series names produced by HeatingSplit.
const (
	SeriesHeatingOn  = "heating_on"
	SeriesHeatingOff = "heating_off"
)

// Aggregator buckets series over date ranges. It is scoped to one school:
// the classifier drives day-type splits and term-time week detection, and
// the academic year start month comes from the school record (September when
// unset).
type Aggregator struct {
	Classifier             *calendar.Classifier
	AcademicYearStartMonth time.Month
}

// SeriesSplitter divides one day's readings across named sub-series. The
// returned sums must add up to the day's total so bucketing preserves it.
type SeriesSplitter func(d types.Date, day amr.DayReadings) map[string]float64

// Series is one input stream to bucket: a named store, optionally split per
// day into sub-series. Submeter marks series that Filter may drop.
type Series struct {
	Name     string
	Store    *amr.HalfHourlyStore
	Split    SeriesSplitter
	Submeter bool
}

// DayTypeSplit divides each day's values by the classification of its
// half-hours, one series per day type present.
func DayTypeSplit(c *calendar.Classifier) SeriesSplitter {
	return func(d types.Date, day amr.DayReadings) map[string]float64 {
		out := make(map[string]float64)
		for dt, v := range c.SplitDay(d, day.Values) {
			out[string(dt)] = v
		}
		return out
	}
}

// HeatingSplit assigns whole days to heating_on or heating_off by whether the
// gas meter burned more than thresholdKWH that day. Days without gas data
// count as heating off.
func HeatingSplit(gas *amr.HalfHourlyStore, thresholdKWH float64) SeriesSplitter {
	return func(d types.Date, day amr.DayReadings) map[string]float64 {
		name := SeriesHeatingOff
		if total, err := gas.OneDayTotal(d); err == nil && total > thresholdKWH {
			name = SeriesHeatingOn
		}
		return map[string]float64{name: day.Total()}
	}
}

// FuelSeries builds one series per meter, named by fuel type. Meters sharing
// a fuel merge into one series.
func FuelSeries(meters []*meter.Meter) []Series {
	out := make([]Series, 0, len(meters))
	for _, m := range meters {
		out = append(out, Series{Name: string(m.Info.FuelType), Store: m.Store})
	}
	return out
}

// SubmeterSeries builds one submeter-flagged series per member meter.
func SubmeterSeries(members []*meter.Meter) []Series {
	out := make([]Series, 0, len(members))
	for _, m := range members {
		name := m.Info.Name
		if name == "" {
			name = m.Info.ID
		}
		out = append(out, Series{Name: name, Store: m.Store, Submeter: true})
	}
	return out
}

// Buckets is the result of one bucketing run: parallel axis labels and date
// ranges, plus one value slice per named series, all of equal length.
type Buckets struct {
	Grouping Grouping             `json:"grouping"`
	Labels   []string             `json:"labels"`
	Ranges   []types.DateRange    `json:"ranges"`
	Series   map[string][]float64 `json:"series"`

	submeter map[string]bool
}

// Bucket partitions [start, end] per the grouping and sums each series into
// its buckets. The bucketed span must lie inside every series' data bounds
// (ErrRangeUnavailable otherwise); days missing inside the span are skipped,
// consistent with the store's range semantics, so summing a series' buckets
// always reproduces its unbucketed total over the same span.
func (a *Aggregator) Bucket(ctx context.Context, series []Series, g Grouping, start, end types.Date) (*Buckets, error) {
	periods, err := a.Periods(g, start, end)
	if err != nil {
		return nil, err
	}
	b := &Buckets{
		Grouping: g,
		Labels:   make([]string, len(periods)),
		Ranges:   make([]types.DateRange, len(periods)),
		Series:   make(map[string][]float64),
		submeter: make(map[string]bool),
	}
	for i, p := range periods {
		b.Labels[i] = p.Label
		b.Ranges[i] = p.Range
	}
	if len(periods) == 0 {
		return b, nil
	}

	span := types.DateRange{Start: periods[0].Range.Start, End: periods[len(periods)-1].Range.End}
	for _, s := range series {
		if _, err := s.Store.TotalInRange(span.Start, span.End); err != nil {
			return nil, fmt.Errorf("series %s over %s to %s: %w", s.Name, span.Start, span.End, err)
		}
	}

	for _, s := range series {
		for i, p := range periods {
			for d := p.Range.Start; !d.After(p.Range.End); d = d.AddDays(1) {
				day, ok := s.Store.Day(d)
				if !ok {
					continue
				}
				if s.Split == nil {
					b.addTo(s.Name, s.Submeter, i, day.Total())
					continue
				}
				for name, v := range s.Split(d, day) {
					b.addTo(name, s.Submeter, i, v)
				}
			}
		}
	}
	return b, nil
}

func (b *Buckets) addTo(name string, submeter bool, bucket int, v float64) {
	if _, ok := b.Series[name]; !ok {
		b.Series[name] = make([]float64, len(b.Labels))
		b.submeter[name] = submeter
	}
	b.Series[name][bucket] += v
}

// SeriesNames returns the series names in sorted order.
func (b *Buckets) SeriesNames() []string {
	names := make([]string, 0, len(b.Series))
	for name := range b.Series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Total sums every bucket of one series.
func (b *Buckets) Total(name string) float64 {
	var total float64
	for _, v := range b.Series[name] {
		total += v
	}
	return total
}

// PercentOfTotal expresses each bucket of a series as a percentage of the
// series total. A zero total yields zeros, never NaN.
func (b *Buckets) PercentOfTotal(name string) []float64 {
	values := b.Series[name]
	out := make([]float64, len(values))
	total := b.Total(name)
	if total == 0 {
		return out
	}
	for i, v := range values {
		out[i] = v / total * 100
	}
	return out
}

// PotentialSavings returns how far the series total exceeds the expected
// reference consumption, floored at zero. Expected figures come from
// externally curated benchmark or exemplar constants scaled to the bucketed
// span.
func (b *Buckets) PotentialSavings(name string, expected float64) float64 {
	diff := b.Total(name) - expected
	if diff < 0 {
		return 0
	}
	return diff
}

// Filter returns a copy retaining the named series. Series not flagged as
// submeters always survive, so a secondary axis (temperature, whole-site
// total) is never dropped by narrowing a submeter breakdown.
func (b *Buckets) Filter(keep ...string) *Buckets {
	kept := make(map[string]bool, len(keep))
	for _, name := range keep {
		kept[name] = true
	}
	out := &Buckets{
		Grouping: b.Grouping,
		Labels:   b.Labels,
		Ranges:   b.Ranges,
		Series:   make(map[string][]float64),
		submeter: make(map[string]bool),
	}
	for name, values := range b.Series {
		if b.submeter[name] && !kept[name] {
			continue
		}
		out.Series[name] = values
		out.submeter[name] = b.submeter[name]
	}
	return out
}
