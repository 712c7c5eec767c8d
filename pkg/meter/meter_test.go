package meter

import (
	"context"
	"testing"
	"time"

	"github.com/schoolwatt/schoolwatt/pkg/amr"
	"github.com/schoolwatt/schoolwatt/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readingDay(meterID string, d types.Date, v float64) types.ReadingDay {
	values := make([]float64, amr.HalfHoursPerDay)
	for i := range values {
		values[i] = v
	}
	return types.ReadingDay{MeterID: meterID, Date: d, Values: values}
}

func TestLoadReadings(t *testing.T) {
	ctx := context.Background()
	m := New(types.MeterInfo{ID: "1234567890123", FuelType: types.FuelElectricity})

	day := readingDay("1234567890123", types.NewDate(2023, time.May, 1), 0.75)
	day.Missing = []int{5, 6}
	m.LoadReadings(ctx, []types.ReadingDay{day})

	stored, ok := m.Store.Day(types.NewDate(2023, time.May, 1))
	require.True(t, ok)
	assert.Equal(t, []int{5, 6}, stored.Missing)
	assert.InDelta(t, 46*0.75, stored.Total(), 0.0001)
}

func TestAggregateMeter(t *testing.T) {
	ctx := context.Background()

	m1 := New(types.MeterInfo{ID: "m1", FuelType: types.FuelElectricity})
	m2 := New(types.MeterInfo{ID: "m2", FuelType: types.FuelElectricity})
	for d := types.NewDate(2023, time.April, 1); !d.After(types.NewDate(2023, time.April, 30)); d = d.AddDays(1) {
		m1.LoadReadings(ctx, []types.ReadingDay{readingDay("m1", d, 1)})
		m2.LoadReadings(ctx, []types.ReadingDay{readingDay("m2", d, 2)})
	}

	agg := NewAggregate(ctx, types.MeterInfo{ID: "whole-school", FuelType: types.FuelElectricity}, []*Meter{m1, m2})

	total, err := agg.Store.OneDayTotal(types.NewDate(2023, time.April, 10))
	require.NoError(t, err)
	assert.InDelta(t, 48*3.0, total, 0.0001)

	t.Run("recompute picks up new member data", func(t *testing.T) {
		newDay := types.NewDate(2023, time.May, 1)
		m1.LoadReadings(ctx, []types.ReadingDay{readingDay("m1", newDay, 1)})
		m2.LoadReadings(ctx, []types.ReadingDay{readingDay("m2", newDay, 2)})

		// stale until recomputed
		assert.True(t, agg.Store.DateMissing(newDay))
		agg.Recompute(ctx)
		assert.True(t, agg.Store.DateExists(newDay))
	})

	t.Run("membership change takes effect on recompute", func(t *testing.T) {
		agg.SetMembers([]*Meter{m1})
		agg.Recompute(ctx)
		total, err := agg.Store.OneDayTotal(types.NewDate(2023, time.April, 10))
		require.NoError(t, err)
		assert.InDelta(t, 48.0, total, 0.0001)
	})
}
