package types

import (
	"fmt"
	"time"
)

// RateKind is the closed set of tariff rate shapes. Cost calculation switches
// exhaustively on it; anything else is a configuration error surfaced as
// ErrUnexpectedRateShape.
type RateKind string

const (
	RateKindFlat         RateKind = "flat"
	RateKindDifferential RateKind = "differential"
	RateKindTiered       RateKind = "tiered"
)

// TariffLevel is the owner level of a tariff. Higher values are more specific
// and win when tariffs at different levels cover the same date.
type TariffLevel int

const (
	TariffLevelSiteDefault TariffLevel = iota
	TariffLevelSchoolGroup
	TariffLevelSchool
	TariffLevelMeter
)

// String returns the level's name for logging and storage.
func (l TariffLevel) String() string {
	switch l {
	case TariffLevelSiteDefault:
		return "site_default"
	case TariffLevelSchoolGroup:
		return "school_group"
	case TariffLevelSchool:
		return "school"
	case TariffLevelMeter:
		return "meter"
	default:
		return fmt.Sprintf("TariffLevel(%d)", int(l))
	}
}

// StandingChargeCadence is how often a standing charge accrues.
type StandingChargeCadence string

const (
	ChargePerDay   StandingChargeCadence = "per_day"
	ChargePerMonth StandingChargeCadence = "per_month"
)

// StandingCharge is a consumption-independent bill component, e.g. a daily
// standing charge or a named levy.
type StandingCharge struct {
	Name    string                `json:"name"`
	RateGBP float64               `json:"rateGBP"`
	Cadence StandingChargeCadence `json:"cadence"`
}

// DailyGBP returns the charge apportioned to the given date. Monthly charges
// are spread over the actual days in that month.
func (c StandingCharge) DailyGBP(d Date) float64 {
	switch c.Cadence {
	case ChargePerMonth:
		return c.RateGBP / float64(d.DaysInMonth())
	default:
		return c.RateGBP
	}
}

// DifferentialRate is one time-of-day rate window within a differential
// tariff. StartHalfHour is inclusive, EndHalfHour exclusive; the windows of a
// valid tariff cover all 48 half-hours without overlap.
type DifferentialRate struct {
	Name          string  `json:"name"`
	StartHalfHour int     `json:"startHalfHour"`
	EndHalfHour   int     `json:"endHalfHour"`
	RatePerKWH    float64 `json:"ratePerKWH"`
}

// TierRate is one consumption band of a tiered tariff. LowKWH is the
// cumulative-daily-consumption lower bound (inclusive); HighKWH is the upper
// bound (exclusive), with 0 meaning unbounded for the terminal tier.
type TierRate struct {
	Name       string  `json:"name"`
	LowKWH     float64 `json:"lowKWH"`
	HighKWH    float64 `json:"highKWH"`
	RatePerKWH float64 `json:"ratePerKWH"`
}

// Tariff is one contracted (or default) rate schedule. It is a tagged
// variant: Kind selects which of the rate fields is meaningful. Tariffs are
// immutable once used for a historical cost calculation; a correction is a
// new Tariff row with a later CreatedAt, never an in-place edit.
type Tariff struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	FuelType FuelType    `json:"fuelType"`
	Level    TariffLevel `json:"level"`
	// OwnerID names the meter, school or group the tariff belongs to,
	// matching Level. Site defaults have no owner.
	OwnerID   string `json:"ownerID,omitempty"`
	StartDate Date   `json:"startDate"`
	// EndDate is zero for an open-ended tariff.
	EndDate   Date      `json:"endDate"`
	CreatedAt time.Time `json:"createdAt"`

	Kind RateKind `json:"kind"`
	// FlatRatePerKWH is used when Kind is RateKindFlat.
	FlatRatePerKWH float64 `json:"flatRatePerKWH,omitempty"`
	// DifferentialRates is used when Kind is RateKindDifferential.
	DifferentialRates []DifferentialRate `json:"differentialRates,omitempty"`
	// TierRates is used when Kind is RateKindTiered, ordered by LowKWH.
	TierRates []TierRate `json:"tierRates,omitempty"`

	StandingCharges []StandingCharge `json:"standingCharges,omitempty"`
}

// AppliesTo reports whether the tariff covers the given date.
func (t *Tariff) AppliesTo(d Date) bool {
	if d.Before(t.StartDate) {
		return false
	}
	if t.EndDate.IsZero() {
		return true
	}
	return !d.After(t.EndDate)
}

// ForMeter reports whether the tariff can price the given meter: the fuel
// must match and the owner must be the meter itself, its school, or the
// school's group. An empty OwnerID at school or group level matches any
// school, which stored tariffs use when shared across a trust.
func (t *Tariff) ForMeter(info MeterInfo, school School) bool {
	if t.FuelType != info.FuelType {
		return false
	}
	switch t.Level {
	case TariffLevelMeter:
		return t.OwnerID == info.ID
	case TariffLevelSchool:
		return t.OwnerID == "" || t.OwnerID == school.ID
	case TariffLevelSchoolGroup:
		return t.OwnerID == "" || t.OwnerID == school.GroupID
	default:
		return true
	}
}

// Differential reports whether the tariff has more than one time-of-day rate.
func (t *Tariff) Differential() bool {
	return t.Kind == RateKindDifferential && len(t.DifferentialRates) > 1
}

// Validate checks the tariff's rate structure against its declared kind.
func (t *Tariff) Validate() error {
	switch t.Kind {
	case RateKindFlat:
		if t.FlatRatePerKWH < 0 {
			return fmt.Errorf("tariff %s: negative flat rate", t.ID)
		}
	case RateKindDifferential:
		if err := validateDifferentialCoverage(t.DifferentialRates); err != nil {
			return fmt.Errorf("tariff %s: %w", t.ID, err)
		}
	case RateKindTiered:
		if err := validateTiers(t.TierRates); err != nil {
			return fmt.Errorf("tariff %s: %w", t.ID, err)
		}
	default:
		return fmt.Errorf("tariff %s has kind %q: %w", t.ID, t.Kind, ErrUnexpectedRateShape)
	}
	if !t.EndDate.IsZero() && t.EndDate.Before(t.StartDate) {
		return fmt.Errorf("tariff %s: end date %s before start date %s", t.ID, t.EndDate, t.StartDate)
	}
	return nil
}

// validateDifferentialCoverage requires the rate windows to cover all 48
// half-hours exactly once. Anything else would silently price some half-hours
// at zero.
func validateDifferentialCoverage(rates []DifferentialRate) error {
	if len(rates) == 0 {
		return fmt.Errorf("differential tariff has no rates: %w", ErrUnexpectedRateShape)
	}
	var covered [48]int
	for _, r := range rates {
		if r.StartHalfHour < 0 || r.EndHalfHour > 48 || r.StartHalfHour >= r.EndHalfHour {
			return fmt.Errorf("rate %q has invalid half-hour window [%d,%d): %w",
				r.Name, r.StartHalfHour, r.EndHalfHour, ErrUnexpectedRateShape)
		}
		for i := r.StartHalfHour; i < r.EndHalfHour; i++ {
			covered[i]++
		}
	}
	for i, n := range covered {
		if n != 1 {
			return fmt.Errorf("half-hour %d covered by %d rate windows: %w", i, n, ErrUnexpectedRateShape)
		}
	}
	return nil
}

// validateTiers requires contiguous bands starting at zero with an unbounded
// terminal tier.
func validateTiers(tiers []TierRate) error {
	if len(tiers) == 0 {
		return fmt.Errorf("tiered tariff has no tiers: %w", ErrUnexpectedRateShape)
	}
	expectedLow := 0.0
	for i, tier := range tiers {
		if tier.LowKWH != expectedLow {
			return fmt.Errorf("tier %q starts at %.1f kWh, expected %.1f: %w",
				tier.Name, tier.LowKWH, expectedLow, ErrUnexpectedRateShape)
		}
		last := i == len(tiers)-1
		if last {
			if tier.HighKWH != 0 {
				return fmt.Errorf("terminal tier %q must be unbounded: %w", tier.Name, ErrUnexpectedRateShape)
			}
		} else {
			if tier.HighKWH <= tier.LowKWH {
				return fmt.Errorf("tier %q has empty band: %w", tier.Name, ErrUnexpectedRateShape)
			}
			expectedLow = tier.HighKWH
		}
	}
	return nil
}
