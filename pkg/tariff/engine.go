package tariff

import (
	"fmt"

	"github.com/schoolwatt/schoolwatt/pkg/amr"
	"github.com/schoolwatt/schoolwatt/pkg/meter"
	"github.com/schoolwatt/schoolwatt/pkg/types"
)

// Defaults carries the system-wide fallback rates used when no tariff at any
// owner level covers a date. They are supplied by configuration (see
// pkg/benchmark), never hardcoded here.
type Defaults struct {
	RatesPerKWH map[types.FuelType]float64
}

// TariffFor returns a synthetic open-ended flat tariff at the site-default
// level for the fuel, or ok=false if no default rate was configured.
func (d Defaults) TariffFor(fuel types.FuelType) (*types.Tariff, bool) {
	rate, ok := d.RatesPerKWH[fuel]
	if !ok {
		return nil, false
	}
	return &types.Tariff{
		ID:             "system_default_" + string(fuel),
		Name:           "System default",
		FuelType:       fuel,
		Level:          types.TariffLevelSiteDefault,
		Kind:           types.RateKindFlat,
		FlatRatePerKWH: rate,
	}, true
}

// Engine computes costs for one meter. It owns a resolver over the meter's
// tariff set and is scoped to one calculation run; build a fresh engine after
// the meter's tariffs or (for aggregates) membership change.
type Engine struct {
	meter     *meter.Meter
	resolver  *Resolver
	defaults  Defaults
	co2PerKWH float64
}

// NewEngine builds an engine for the meter. co2PerKWH is the carbon intensity
// of the meter's fuel in kg CO2 per kWh.
func NewEngine(m *meter.Meter, defaults Defaults, co2PerKWH float64) *Engine {
	return &Engine{
		meter:     m,
		resolver:  NewResolver(m.Tariffs),
		defaults:  defaults,
		co2PerKWH: co2PerKWH,
	}
}

// Resolver exposes the engine's tariff resolver.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// Meter returns the meter the engine prices.
func (e *Engine) Meter() *meter.Meter {
	return e.meter
}

// CO2PerKWH returns the carbon intensity the engine was built with.
func (e *Engine) CO2PerKWH() float64 {
	return e.co2PerKWH
}

// Resolve returns the tariff in force for the date, falling back to the
// system default for the meter's fuel. With neither it returns
// ErrUnresolvedTariff: accounting for a date must fail explicitly rather
// than assume free energy.
func (e *Engine) Resolve(d types.Date) (*types.Tariff, error) {
	if t, ok := e.resolver.FindTariffForDate(d); ok {
		return t, nil
	}
	if t, ok := e.defaults.TariffFor(e.meter.Info.FuelType); ok {
		return t, nil
	}
	return nil, fmt.Errorf("meter %s on %s: %w", e.meter.Info.ID, d, types.ErrUnresolvedTariff)
}

// EconomicCost prices one day of the meter's consumption with rates only.
func (e *Engine) EconomicCost(d types.Date) (*CostBreakdown, error) {
	day, t, err := e.dayAndTariff(d)
	if err != nil {
		return nil, err
	}
	return EconomicCostDay(d, day.Values, t)
}

// AccountingCost prices one day including standing charges.
func (e *Engine) AccountingCost(d types.Date) (*CostBreakdown, error) {
	day, t, err := e.dayAndTariff(d)
	if err != nil {
		return nil, err
	}
	return AccountingCostDay(d, day.Values, t)
}

// DayUsage returns the day's combined kWh, accounting cost and CO2.
func (e *Engine) DayUsage(d types.Date) (types.CombinedUsage, error) {
	b, err := e.AccountingCost(d)
	if err != nil {
		return types.CombinedUsage{}, err
	}
	kwh, err := e.meter.Store.OneDayTotal(d)
	if err != nil {
		return types.CombinedUsage{}, err
	}
	return types.CombinedUsage{
		KWH:     kwh,
		CostGBP: b.OneDayTotalCost(),
		CO2KG:   kwh * e.co2PerKWH,
	}, nil
}

// RangeUsage sums DayUsage over [start, end]. The range must be covered by
// the meter's data (ErrRangeUnavailable otherwise); days missing inside the
// range are skipped like everywhere else, but a day with no resolvable tariff
// fails the whole query.
func (e *Engine) RangeUsage(start, end types.Date) (types.CombinedUsage, error) {
	// range check shares the store's availability semantics
	if _, err := e.meter.Store.TotalInRange(start, end); err != nil {
		return types.CombinedUsage{}, err
	}
	var total types.CombinedUsage
	for d := start; !d.After(end); d = d.AddDays(1) {
		if e.meter.Store.DateMissing(d) {
			continue
		}
		u, err := e.DayUsage(d)
		if err != nil {
			return types.CombinedUsage{}, err
		}
		total = total.Add(u)
	}
	return total, nil
}

func (e *Engine) dayAndTariff(d types.Date) (amr.DayReadings, *types.Tariff, error) {
	day, ok := e.meter.Store.Day(d)
	if !ok {
		return amr.DayReadings{}, nil, fmt.Errorf("meter %s has no readings for %s: %w",
			e.meter.Info.ID, d, types.ErrInsufficientData)
	}
	t, err := e.Resolve(d)
	if err != nil {
		return amr.DayReadings{}, nil, err
	}
	return day, t, nil
}
