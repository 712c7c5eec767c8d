package baseload

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/schoolwatt/schoolwatt/pkg/amr"
	"github.com/schoolwatt/schoolwatt/pkg/meter"
	"github.com/schoolwatt/schoolwatt/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// schoolDay has 8 quiet half-hours at 0.1 kWh and 40 busy ones at 1.0 kWh,
// with the quiet slots deliberately scattered through the day.
func schoolDay() []float64 {
	values := make([]float64, amr.HalfHoursPerDay)
	for i := range values {
		values[i] = 1.0
	}
	for _, i := range []int{0, 3, 7, 20, 30, 44, 45, 47} {
		values[i] = 0.1
	}
	return values
}

func storeWith(t *testing.T, start, end types.Date, day []float64) *amr.HalfHourlyStore {
	t.Helper()
	s := amr.NewStore()
	for d := start; !d.After(end); d = d.AddDays(1) {
		s.Add(context.Background(), d, day)
	}
	return s
}

func TestStatistical(t *testing.T) {
	date := types.NewDate(2023, time.March, 1)
	s := storeWith(t, date, date, schoolDay())

	kw, err := NewStatistical(s).BaseloadKW(date)
	require.NoError(t, err)
	// lowest 8 average 0.1 kWh per half-hour, so 0.2 kW
	assert.InDelta(t, 0.2, kw, 0.0001)

	t.Run("missing half-hours are excluded, not treated as zero", func(t *testing.T) {
		day := schoolDay()
		day[3] = math.NaN()
		day[12] = math.NaN()
		s := storeWith(t, date, date, day)
		kw, err := NewStatistical(s).BaseloadKW(date)
		require.NoError(t, err)
		// 7 quiet slots remain so one busy slot joins the lowest eight
		assert.InDelta(t, (7*0.1+1.0)/8*2.0, kw, 0.0001)
	})

	t.Run("too few readings to rank", func(t *testing.T) {
		day := make([]float64, amr.HalfHoursPerDay)
		for i := range day {
			day[i] = math.NaN()
		}
		day[0], day[1] = 0.1, 0.1
		s := storeWith(t, date, date, day)
		_, err := NewStatistical(s).BaseloadKW(date)
		assert.ErrorIs(t, err, types.ErrInsufficientData)
	})

	t.Run("absent day outside bounds", func(t *testing.T) {
		_, err := NewStatistical(s).BaseloadKW(date.AddDays(10))
		assert.ErrorIs(t, err, types.ErrRangeUnavailable)
	})
}

func TestOvernight(t *testing.T) {
	date := types.NewDate(2023, time.March, 1)
	day := schoolDay()
	for i := 41; i < amr.HalfHoursPerDay; i++ {
		day[i] = 0.25
	}
	s := storeWith(t, date, date, day)

	kw, err := NewOvernight(s).BaseloadKW(date)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, kw, 0.0001)

	t.Run("daytime values are irrelevant", func(t *testing.T) {
		negativeDaytime := make([]float64, amr.HalfHoursPerDay)
		for i := range negativeDaytime {
			negativeDaytime[i] = -5.0 // synthesised solar export
		}
		for i := 41; i < amr.HalfHoursPerDay; i++ {
			negativeDaytime[i] = 0.25
		}
		s := storeWith(t, date, date, negativeDaytime)
		kw, err := NewOvernight(s).BaseloadKW(date)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, kw, 0.0001)
	})
}

func TestAverageBaseloadKWRange(t *testing.T) {
	start := types.NewDate(2023, time.March, 1)
	end := types.NewDate(2023, time.March, 10)
	s := storeWith(t, start, end, schoolDay())
	calc := NewStatistical(s)

	avg, err := calc.AverageBaseloadKWRange(start, end)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, avg, 0.0001)

	t.Run("empty window averages to zero", func(t *testing.T) {
		avg, err := calc.AverageBaseloadKWRange(end, start)
		require.NoError(t, err)
		assert.Zero(t, avg)
	})

	t.Run("gap inside the window fails rather than skewing the average", func(t *testing.T) {
		gappy := amr.NewStore()
		for d := start; !d.After(end); d = d.AddDays(1) {
			if d != types.NewDate(2023, time.March, 5) {
				gappy.Add(context.Background(), d, schoolDay())
			}
		}
		_, err := NewStatistical(gappy).AverageBaseloadKWRange(start, end)
		assert.ErrorIs(t, err, types.ErrInsufficientData)
	})
}

func TestCalculatorFor(t *testing.T) {
	plain := meter.New(types.MeterInfo{ID: "m1", FuelType: types.FuelElectricity})
	solar := meter.New(types.MeterInfo{ID: "m2", FuelType: types.FuelElectricity, SolarSynthetic: true})

	assert.IsType(t, &Statistical{}, CalculatorFor(plain))
	assert.IsType(t, &Overnight{}, CalculatorFor(solar))
}

func TestTrailingYearRange(t *testing.T) {
	t.Run("clamped to short history", func(t *testing.T) {
		start := types.NewDate(2023, time.January, 1)
		end := types.NewDate(2023, time.March, 31)
		s := storeWith(t, start, end, schoolDay())
		r, ok := TrailingYearRange(s)
		require.True(t, ok)
		assert.Equal(t, types.DateRange{Start: start, End: end}, r)
	})

	t.Run("full year of history", func(t *testing.T) {
		start := types.NewDate(2021, time.January, 1)
		end := types.NewDate(2023, time.March, 31)
		s := storeWith(t, start, end, schoolDay())
		r, ok := TrailingYearRange(s)
		require.True(t, ok)
		assert.Equal(t, end, r.End)
		assert.Equal(t, end.AddDays(-364), r.Start)
	})

	t.Run("empty store", func(t *testing.T) {
		_, ok := TrailingYearRange(amr.NewStore())
		assert.False(t, ok)
	})
}
