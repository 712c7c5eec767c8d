package tariff

import (
	"context"
	"testing"
	"time"

	"github.com/schoolwatt/schoolwatt/pkg/meter"
	"github.com/schoolwatt/schoolwatt/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testMeter returns an electricity meter with v kWh in every half-hour of
// every day in [start, end], skipping any dates in gaps.
func testMeter(t *testing.T, id string, start, end types.Date, v float64, gaps ...types.Date) *meter.Meter {
	t.Helper()
	m := meter.New(types.MeterInfo{ID: id, FuelType: types.FuelElectricity})
	values := make([]float64, 48)
	for i := range values {
		values[i] = v
	}
	for d := start; !d.After(end); d = d.AddDays(1) {
		skip := false
		for _, g := range gaps {
			if d == g {
				skip = true
			}
		}
		if !skip {
			m.Store.Add(context.Background(), d, values)
		}
	}
	return m
}

func TestEngineResolve(t *testing.T) {
	start := types.NewDate(2023, time.March, 1)
	end := types.NewDate(2023, time.March, 31)
	m := testMeter(t, "e1", start, end, 1)
	m.Tariffs = []types.Tariff{flatTariff("contract", types.TariffLevelMeter,
		start, types.NewDate(2023, time.March, 15), time.Now())}

	defaults := Defaults{RatesPerKWH: map[types.FuelType]float64{types.FuelElectricity: 0.30}}
	e := NewEngine(m, defaults, 0.2)

	t.Run("contracted tariff wins when it covers the date", func(t *testing.T) {
		got, err := e.Resolve(types.NewDate(2023, time.March, 10))
		require.NoError(t, err)
		assert.Equal(t, "contract", got.ID)
	})

	t.Run("system default fills uncovered dates", func(t *testing.T) {
		got, err := e.Resolve(types.NewDate(2023, time.March, 20))
		require.NoError(t, err)
		assert.Equal(t, types.TariffLevelSiteDefault, got.Level)
		assert.Equal(t, 0.30, got.FlatRatePerKWH)
	})

	t.Run("no tariff and no default fails explicitly", func(t *testing.T) {
		bare := NewEngine(m, Defaults{}, 0.2)
		_, err := bare.Resolve(types.NewDate(2023, time.March, 20))
		assert.ErrorIs(t, err, types.ErrUnresolvedTariff)
	})
}

func TestEngineDayUsage(t *testing.T) {
	start := types.NewDate(2023, time.March, 1)
	end := types.NewDate(2023, time.March, 31)
	m := testMeter(t, "e1", start, end, 2) // 96 kWh/day
	m.Tariffs = []types.Tariff{flatTariff("contract", types.TariffLevelMeter, start, types.Date{}, time.Now())}
	e := NewEngine(m, Defaults{}, 0.2)

	u, err := e.DayUsage(types.NewDate(2023, time.March, 10))
	require.NoError(t, err)
	assert.InDelta(t, 96.0, u.KWH, 0.0001)
	assert.InDelta(t, 96*0.15, u.CostGBP, 0.0001)
	assert.InDelta(t, 96*0.2, u.CO2KG, 0.0001)
}

func TestEngineRangeUsage(t *testing.T) {
	start := types.NewDate(2023, time.March, 1)
	end := types.NewDate(2023, time.March, 31)
	gap := types.NewDate(2023, time.March, 10)
	m := testMeter(t, "e1", start, end, 2, gap)
	m.Tariffs = []types.Tariff{flatTariff("contract", types.TariffLevelMeter, start, types.Date{}, time.Now())}
	e := NewEngine(m, Defaults{}, 0.2)

	t.Run("missing interior day is skipped, not zeroed", func(t *testing.T) {
		u, err := e.RangeUsage(start, end)
		require.NoError(t, err)
		assert.InDelta(t, 30*96.0, u.KWH, 0.0001)
		assert.InDelta(t, 30*96*0.15, u.CostGBP, 0.0001)
	})

	t.Run("range past the data is unavailable", func(t *testing.T) {
		_, err := e.RangeUsage(start, types.NewDate(2023, time.April, 30))
		assert.ErrorIs(t, err, types.ErrRangeUnavailable)
	})
}

func TestCombineFromMultipleMeters(t *testing.T) {
	ctx := context.Background()
	start := types.NewDate(2023, time.March, 1)
	end := types.NewDate(2023, time.March, 3)

	main := testMeter(t, "main", start, end, 2)
	main.Tariffs = []types.Tariff{flatTariff("main-t", types.TariffLevelMeter, start, types.Date{}, time.Now())}
	kitchen := testMeter(t, "kitchen", start, end, 1)
	kitchen.Tariffs = []types.Tariff{flatTariff("kitchen-t", types.TariffLevelMeter, start, types.Date{}, time.Now())}

	engines := []*Engine{
		NewEngine(main, Defaults{}, 0.2),
		NewEngine(kitchen, Defaults{}, 0.2),
	}

	out := CombineFromMultipleMeters(ctx, engines, start, end)
	assert.Empty(t, out.Unavailable)
	// 3 days of (96 + 48) kWh at 0.15
	assert.InDelta(t, 3*144*0.15, out.TotalGBP(), 0.0001)

	t.Run("a date one meter has no readings for still sums the others", func(t *testing.T) {
		gap := types.NewDate(2023, time.March, 2)
		patchy := testMeter(t, "patchy", start, end, 1, gap)
		patchy.Tariffs = []types.Tariff{flatTariff("patchy-t", types.TariffLevelMeter, start, types.Date{}, time.Now())}
		engines := append(engines, NewEngine(patchy, Defaults{}, 0.2))

		out := CombineFromMultipleMeters(ctx, engines, start, end)
		assert.Empty(t, out.Unavailable)
		// March 2 carries only main and kitchen; the other two days all three
		assert.InDelta(t, (3*144+2*48)*0.15, out.TotalGBP(), 0.0001)
	})

	t.Run("a date any meter cannot cost is flagged, not zeroed", func(t *testing.T) {
		uncovered := testMeter(t, "gas", start, end, 1)
		uncovered.Tariffs = []types.Tariff{flatTariff("gas-t", types.TariffLevelMeter,
			start, types.NewDate(2023, time.March, 2), time.Now())}
		engines := append(engines, NewEngine(uncovered, Defaults{}, 0.2))

		out := CombineFromMultipleMeters(ctx, engines, start, end)
		assert.Equal(t, []types.Date{types.NewDate(2023, time.March, 3)}, out.Unavailable)
		// the flagged date contributes nothing from any meter
		assert.InDelta(t, 2*(144+48)*0.15, out.TotalGBP(), 0.0001)
	})
}
