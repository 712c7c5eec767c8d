package types

// CombinedUsage bundles the three parallel measures of one bucket or
// category: energy, cost and carbon, plus that bucket's share of some larger
// total. Values are combined with the methods below rather than by mutating
// fields so that a usage figure handed to a report layer stays internally
// consistent.
type CombinedUsage struct {
	KWH     float64 `json:"kwh"`
	CostGBP float64 `json:"costGBP"`
	CO2KG   float64 `json:"co2KG"`
	Percent float64 `json:"percent"`
}

// Add returns the element-wise sum of u and other. Percent is cleared since
// it is only meaningful relative to a fixed total.
func (u CombinedUsage) Add(other CombinedUsage) CombinedUsage {
	return CombinedUsage{
		KWH:     u.KWH + other.KWH,
		CostGBP: u.CostGBP + other.CostGBP,
		CO2KG:   u.CO2KG + other.CO2KG,
	}
}

// Sub returns the element-wise difference of u and other.
func (u CombinedUsage) Sub(other CombinedUsage) CombinedUsage {
	return CombinedUsage{
		KWH:     u.KWH - other.KWH,
		CostGBP: u.CostGBP - other.CostGBP,
		CO2KG:   u.CO2KG - other.CO2KG,
	}
}

// WithPercentOf returns a copy of u with Percent set to u's share of the
// given total kWh. A zero total leaves Percent at 0 rather than NaN.
func (u CombinedUsage) WithPercentOf(totalKWH float64) CombinedUsage {
	if totalKWH != 0 {
		u.Percent = u.KWH / totalKWH * 100.0
	} else {
		u.Percent = 0
	}
	return u
}

// PercentChange returns the relative change from previous to u per measure,
// expressed as a CombinedUsage of percentages. Measures with a zero previous
// value report 0.
func (u CombinedUsage) PercentChange(previous CombinedUsage) CombinedUsage {
	pct := func(curr, prev float64) float64 {
		if prev == 0 {
			return 0
		}
		return (curr - prev) / prev * 100.0
	}
	return CombinedUsage{
		KWH:     pct(u.KWH, previous.KWH),
		CostGBP: pct(u.CostGBP, previous.CostGBP),
		CO2KG:   pct(u.CO2KG, previous.CO2KG),
	}
}
