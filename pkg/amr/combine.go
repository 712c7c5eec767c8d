package amr

import (
	"context"
	"log/slog"

	"github.com/schoolwatt/schoolwatt/pkg/log"
	"github.com/schoolwatt/schoolwatt/pkg/types"
)

// CombineStores returns a new store holding the half-hour-wise sum of the
// given stores over their overlapping date range. A date in the overlap that
// is missing from any member is left out of the combined store entirely:
// summing the remaining members would understate the aggregate and the
// absence-versus-zero distinction must survive aggregation.
func CombineStores(ctx context.Context, stores ...*HalfHourlyStore) *HalfHourlyStore {
	combined := NewStore()
	if len(stores) == 0 {
		return combined
	}

	var start, end types.Date
	for i, st := range stores {
		s, e, ok := st.Bounds()
		if !ok {
			// one empty member means there is no overlap at all
			return combined
		}
		if i == 0 {
			start, end = s, e
			continue
		}
		if s.After(start) {
			start = s
		}
		if e.Before(end) {
			end = e
		}
	}
	if end.Before(start) {
		return combined
	}

	var skipped int
	for d := start; !d.After(end); d = d.AddDays(1) {
		values := make([]float64, HalfHoursPerDay)
		missing := false
		for _, st := range stores {
			day, ok := st.Day(d)
			if !ok {
				missing = true
				break
			}
			for i, v := range day.Values {
				values[i] += v
			}
		}
		if missing {
			skipped++
			continue
		}
		combined.Add(ctx, d, values)
	}
	if skipped > 0 {
		log.Ctx(ctx).WarnContext(ctx, "dates missing from some meters excluded from aggregate",
			slog.Int("skipped", skipped),
			slog.String("start", start.String()), slog.String("end", end.String()))
	}
	return combined
}
