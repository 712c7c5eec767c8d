package tariff

import (
	"fmt"

	"github.com/schoolwatt/schoolwatt/pkg/amr"
	"github.com/schoolwatt/schoolwatt/pkg/types"
)

// ComponentFlatRate is the bill component name for a flat per-kWh rate.
// Differential and tiered tariffs contribute components under their own rate
// and tier names; standing charges and levies under their charge names.
const ComponentFlatRate = "flat_rate"

// CostBreakdown is one day's cost split by bill component, one half-hourly
// array per distinct named component. Costs are in pounds; rounding is left
// to presentation. Standing charges are spread evenly across the 48 slots so
// component arrays always sum to the day's cost.
type CostBreakdown struct {
	Date         types.Date
	TariffID     string
	Differential bool
	Components   map[string][amr.HalfHoursPerDay]float64
}

// OneDayTotalCost returns the sum over all components and half-hours.
func (b *CostBreakdown) OneDayTotalCost() float64 {
	var total float64
	for _, arr := range b.Components {
		for _, v := range arr {
			total += v
		}
	}
	return total
}

// ComponentTotal returns the day total for one named component.
func (b *CostBreakdown) ComponentTotal(name string) float64 {
	arr, ok := b.Components[name]
	if !ok {
		return 0
	}
	var total float64
	for _, v := range arr {
		total += v
	}
	return total
}

// ComponentNames returns the named components present.
func (b *CostBreakdown) ComponentNames() []string {
	names := make([]string, 0, len(b.Components))
	for name := range b.Components {
		names = append(names, name)
	}
	return names
}

func (b *CostBreakdown) add(name string, halfHour int, gbp float64) {
	arr := b.Components[name]
	arr[halfHour] += gbp
	b.Components[name] = arr
}

// EconomicCostDay prices a day's 48 kWh values using only the tariff's
// per-kWh rates, ignoring standing charges. This is the simplified model used
// for benchmarking and forward-looking estimates where billing mechanics are
// irrelevant.
func EconomicCostDay(date types.Date, kwh [amr.HalfHoursPerDay]float64, t *types.Tariff) (*CostBreakdown, error) {
	b := &CostBreakdown{
		Date:         date,
		TariffID:     t.ID,
		Differential: t.Differential(),
		Components:   make(map[string][amr.HalfHoursPerDay]float64),
	}
	if err := applyRates(b, kwh, t); err != nil {
		return nil, err
	}
	return b, nil
}

// AccountingCostDay prices a day's consumption against the real contracted
// tariff: per-kWh rates plus standing charges apportioned to the day (monthly
// charges are spread over the actual days in that month).
func AccountingCostDay(date types.Date, kwh [amr.HalfHoursPerDay]float64, t *types.Tariff) (*CostBreakdown, error) {
	b, err := EconomicCostDay(date, kwh, t)
	if err != nil {
		return nil, err
	}
	for _, charge := range t.StandingCharges {
		daily := charge.DailyGBP(date)
		for i := 0; i < amr.HalfHoursPerDay; i++ {
			b.add(charge.Name, i, daily/amr.HalfHoursPerDay)
		}
	}
	return b, nil
}

// applyRates dispatches exhaustively on the tariff's rate shape. An
// unrecognized shape is a configuration bug and fails loudly.
func applyRates(b *CostBreakdown, kwh [amr.HalfHoursPerDay]float64, t *types.Tariff) error {
	switch t.Kind {
	case types.RateKindFlat:
		for i, v := range kwh {
			b.add(ComponentFlatRate, i, v*t.FlatRatePerKWH)
		}
		return nil

	case types.RateKindDifferential:
		if err := applyDifferential(b, kwh, t.DifferentialRates); err != nil {
			return fmt.Errorf("tariff %s: %w", t.ID, err)
		}
		return nil

	case types.RateKindTiered:
		if err := applyTiered(b, kwh, t.TierRates); err != nil {
			return fmt.Errorf("tariff %s: %w", t.ID, err)
		}
		return nil

	default:
		return fmt.Errorf("tariff %s has kind %q: %w", t.ID, t.Kind, types.ErrUnexpectedRateShape)
	}
}

func applyDifferential(b *CostBreakdown, kwh [amr.HalfHoursPerDay]float64, rates []types.DifferentialRate) error {
	if err := validateCoverage(rates); err != nil {
		return err
	}
	for _, r := range rates {
		for i := r.StartHalfHour; i < r.EndHalfHour; i++ {
			b.add(r.Name, i, kwh[i]*r.RatePerKWH)
		}
	}
	return nil
}

func validateCoverage(rates []types.DifferentialRate) error {
	var covered [amr.HalfHoursPerDay]bool
	for _, r := range rates {
		if r.StartHalfHour < 0 || r.EndHalfHour > amr.HalfHoursPerDay || r.StartHalfHour >= r.EndHalfHour {
			return fmt.Errorf("rate %q window [%d,%d): %w", r.Name, r.StartHalfHour, r.EndHalfHour, types.ErrUnexpectedRateShape)
		}
		for i := r.StartHalfHour; i < r.EndHalfHour; i++ {
			if covered[i] {
				return fmt.Errorf("half-hour %d priced twice: %w", i, types.ErrUnexpectedRateShape)
			}
			covered[i] = true
		}
	}
	for i, ok := range covered {
		if !ok {
			return fmt.Errorf("half-hour %d unpriced: %w", i, types.ErrUnexpectedRateShape)
		}
	}
	return nil
}

// applyTiered allocates each half-hour's kWh to consumption tiers according
// to where the day's cumulative consumption falls, so a half-hour straddling
// a threshold is split proportionally between tiers. Tier boundaries are
// evaluated on cumulative gross consumption, never on a half-hour in
// isolation, which makes the day's total cost independent of when in the day
// the excess occurred. Negative half-hours (net export) never rewind the
// cumulative position: consumption already charged in a tier stays charged.
func applyTiered(b *CostBreakdown, kwh [amr.HalfHoursPerDay]float64, tiers []types.TierRate) error {
	if len(tiers) == 0 {
		return fmt.Errorf("no tiers: %w", types.ErrUnexpectedRateShape)
	}
	var cumulative float64
	for i, v := range kwh {
		if v <= 0 {
			continue
		}
		lo := cumulative
		hi := cumulative + v
		for _, tier := range tiers {
			tierHigh := tier.HighKWH
			unbounded := tierHigh == 0
			if !unbounded && lo >= tierHigh {
				continue
			}
			if hi <= tier.LowKWH {
				break
			}
			from := lo
			if from < tier.LowKWH {
				from = tier.LowKWH
			}
			to := hi
			if !unbounded && to > tierHigh {
				to = tierHigh
			}
			if to > from {
				b.add(tier.Name, i, (to-from)*tier.RatePerKWH)
			}
		}
		cumulative = hi
	}
	return nil
}
