package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTariffAppliesTo(t *testing.T) {
	tariff := &Tariff{
		ID:        "t1",
		Kind:      RateKindFlat,
		StartDate: NewDate(2023, time.January, 1),
		EndDate:   NewDate(2023, time.June, 30),
	}

	assert.False(t, tariff.AppliesTo(NewDate(2022, time.December, 31)))
	assert.True(t, tariff.AppliesTo(NewDate(2023, time.January, 1)))
	assert.True(t, tariff.AppliesTo(NewDate(2023, time.June, 30)))
	assert.False(t, tariff.AppliesTo(NewDate(2023, time.July, 1)))

	t.Run("open ended", func(t *testing.T) {
		open := &Tariff{Kind: RateKindFlat, StartDate: NewDate(2023, time.January, 1)}
		assert.True(t, open.AppliesTo(NewDate(2099, time.December, 31)))
	})
}

func TestTariffValidate(t *testing.T) {
	start := NewDate(2023, time.January, 1)

	t.Run("flat", func(t *testing.T) {
		tariff := &Tariff{ID: "f", Kind: RateKindFlat, StartDate: start, FlatRatePerKWH: 0.15}
		assert.NoError(t, tariff.Validate())

		tariff.FlatRatePerKWH = -0.01
		assert.Error(t, tariff.Validate())
	})

	t.Run("unknown kind is loud", func(t *testing.T) {
		tariff := &Tariff{ID: "x", Kind: "economy_11", StartDate: start}
		err := tariff.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnexpectedRateShape)
	})

	t.Run("differential must cover all 48 half-hours", func(t *testing.T) {
		tariff := &Tariff{
			ID: "d", Kind: RateKindDifferential, StartDate: start,
			DifferentialRates: []DifferentialRate{
				{Name: "night", StartHalfHour: 0, EndHalfHour: 14, RatePerKWH: 0.08},
				{Name: "day", StartHalfHour: 14, EndHalfHour: 48, RatePerKWH: 0.20},
			},
		}
		assert.NoError(t, tariff.Validate())

		t.Run("gap", func(t *testing.T) {
			bad := *tariff
			bad.DifferentialRates = []DifferentialRate{
				{Name: "night", StartHalfHour: 0, EndHalfHour: 14, RatePerKWH: 0.08},
				{Name: "day", StartHalfHour: 16, EndHalfHour: 48, RatePerKWH: 0.20},
			}
			assert.ErrorIs(t, bad.Validate(), ErrUnexpectedRateShape)
		})

		t.Run("overlap", func(t *testing.T) {
			bad := *tariff
			bad.DifferentialRates = []DifferentialRate{
				{Name: "night", StartHalfHour: 0, EndHalfHour: 20, RatePerKWH: 0.08},
				{Name: "day", StartHalfHour: 14, EndHalfHour: 48, RatePerKWH: 0.20},
			}
			assert.ErrorIs(t, bad.Validate(), ErrUnexpectedRateShape)
		})
	})

	t.Run("tiered must be contiguous with open terminal tier", func(t *testing.T) {
		tariff := &Tariff{
			ID: "t", Kind: RateKindTiered, StartDate: start,
			TierRates: []TierRate{
				{Name: "tier1", LowKWH: 0, HighKWH: 1000, RatePerKWH: 0.10},
				{Name: "tier2", LowKWH: 1000, HighKWH: 0, RatePerKWH: 0.25},
			},
		}
		assert.NoError(t, tariff.Validate())

		t.Run("bounded terminal tier", func(t *testing.T) {
			bad := *tariff
			bad.TierRates = []TierRate{
				{Name: "tier1", LowKWH: 0, HighKWH: 1000, RatePerKWH: 0.10},
				{Name: "tier2", LowKWH: 1000, HighKWH: 2000, RatePerKWH: 0.25},
			}
			assert.ErrorIs(t, bad.Validate(), ErrUnexpectedRateShape)
		})

		t.Run("gap between tiers", func(t *testing.T) {
			bad := *tariff
			bad.TierRates = []TierRate{
				{Name: "tier1", LowKWH: 0, HighKWH: 1000, RatePerKWH: 0.10},
				{Name: "tier2", LowKWH: 1500, HighKWH: 0, RatePerKWH: 0.25},
			}
			assert.ErrorIs(t, bad.Validate(), ErrUnexpectedRateShape)
		})
	})

	t.Run("end before start", func(t *testing.T) {
		tariff := &Tariff{
			ID: "r", Kind: RateKindFlat, FlatRatePerKWH: 0.1,
			StartDate: NewDate(2023, time.June, 1), EndDate: NewDate(2023, time.January, 1),
		}
		assert.Error(t, tariff.Validate())
	})
}

func TestStandingChargeDailyGBP(t *testing.T) {
	daily := StandingCharge{Name: "standing_charge", RateGBP: 0.48, Cadence: ChargePerDay}
	assert.InDelta(t, 0.48, daily.DailyGBP(NewDate(2023, time.February, 10)), 0.0001)

	monthly := StandingCharge{Name: "site_fee", RateGBP: 28.0, Cadence: ChargePerMonth}
	// February 2023 has 28 days
	assert.InDelta(t, 1.0, monthly.DailyGBP(NewDate(2023, time.February, 10)), 0.0001)
	// January has 31
	assert.InDelta(t, 28.0/31.0, monthly.DailyGBP(NewDate(2023, time.January, 10)), 0.0001)
}

func TestCombinedUsage(t *testing.T) {
	a := CombinedUsage{KWH: 100, CostGBP: 15, CO2KG: 20}
	b := CombinedUsage{KWH: 50, CostGBP: 7.5, CO2KG: 10}

	sum := a.Add(b)
	assert.Equal(t, CombinedUsage{KWH: 150, CostGBP: 22.5, CO2KG: 30}, sum)

	diff := a.Sub(b)
	assert.Equal(t, CombinedUsage{KWH: 50, CostGBP: 7.5, CO2KG: 10}, diff)

	t.Run("percent of total", func(t *testing.T) {
		withPct := b.WithPercentOf(200)
		assert.InDelta(t, 25.0, withPct.Percent, 0.0001)

		// zero total must not produce NaN
		assert.Zero(t, b.WithPercentOf(0).Percent)
	})

	t.Run("percent change", func(t *testing.T) {
		change := a.PercentChange(b)
		assert.InDelta(t, 100.0, change.KWH, 0.0001)
		assert.InDelta(t, 100.0, change.CostGBP, 0.0001)

		// zero previous reports 0, not Inf
		assert.Zero(t, a.PercentChange(CombinedUsage{}).KWH)
	})
}
