package tariff

import (
	"context"
	"log/slog"

	"github.com/schoolwatt/schoolwatt/pkg/log"
	"github.com/schoolwatt/schoolwatt/pkg/types"
)

// RangeBreakdown is the component-wise cost of one or more meters over a date
// range. Dates listed in Unavailable could not be costed because some member
// meter had no resolvable tariff; they contribute nothing to Components and
// must not be read as zero-cost days.
type RangeBreakdown struct {
	Start       types.Date         `json:"start"`
	End         types.Date         `json:"end"`
	Components  map[string]float64 `json:"components"`
	Unavailable []types.Date       `json:"unavailable,omitempty"`
}

// TotalGBP sums every component.
func (r *RangeBreakdown) TotalGBP() float64 {
	var total float64
	for _, v := range r.Components {
		total += v
	}
	return total
}

// CombineFromMultipleMeters sums the accounting cost of the given engines'
// meters, component-wise, for each date in [start, end]. A date missing from
// one meter's readings contributes no cost for that meter while the others
// still contribute; only a date on which some meter has readings but no
// resolvable tariff is flagged unavailable for the whole combination rather
// than silently costed as zero.
func CombineFromMultipleMeters(ctx context.Context, engines []*Engine, start, end types.Date) *RangeBreakdown {
	out := &RangeBreakdown{
		Start:      start,
		End:        end,
		Components: make(map[string]float64),
	}

	for d := start; !d.After(end); d = d.AddDays(1) {
		dayComponents := make(map[string]float64)
		unavailable := false
		for _, e := range engines {
			if e.meter.Store.DateMissing(d) {
				continue
			}
			if _, err := e.Resolve(d); err != nil {
				unavailable = true
				break
			}
			b, err := e.AccountingCost(d)
			if err != nil {
				unavailable = true
				break
			}
			for _, name := range b.ComponentNames() {
				dayComponents[name] += b.ComponentTotal(name)
			}
		}
		if unavailable {
			out.Unavailable = append(out.Unavailable, d)
			continue
		}
		for name, v := range dayComponents {
			out.Components[name] += v
		}
	}

	if len(out.Unavailable) > 0 {
		log.Ctx(ctx).WarnContext(ctx, "dates excluded from combined cost: missing tariffs",
			slog.Int("dates", len(out.Unavailable)),
			slog.String("first", out.Unavailable[0].String()))
	}
	return out
}
