package calendar

import "github.com/schoolwatt/schoolwatt/pkg/types"

// ClassStats aggregates a per-date value over the dates sharing one
// classification.
type ClassStats struct {
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Statistics partitions [start, end] by top-level day type and aggregates
// valueFn over each partition. valueFn returns ok=false for dates with no
// data, which are skipped. Classifications with no contributing dates are
// omitted from the result rather than reported as NaN averages.
func (c *Classifier) Statistics(start, end types.Date, valueFn func(types.Date) (float64, bool)) map[types.DayType]ClassStats {
	stats := make(map[types.DayType]ClassStats)
	for d := start; !d.After(end); d = d.AddDays(1) {
		v, ok := valueFn(d)
		if !ok {
			continue
		}
		dt := c.Classify(d)
		s := stats[dt]
		s.Total += v
		s.Count++
		stats[dt] = s
	}
	for dt, s := range stats {
		s.Average = s.Total / float64(s.Count)
		stats[dt] = s
	}
	return stats
}
