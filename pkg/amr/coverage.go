package amr

import "github.com/schoolwatt/schoolwatt/pkg/types"

// coverageSlack is the fraction of days that may be missing from a window
// while still counting as contiguous-enough coverage. Real AMR feeds drop the
// occasional day, so demanding every single date would reject almost every
// live meter.
const coverageSlack = 0.1

// CoverageEnding reports whether the store has contiguous-enough coverage
// spanning at least the given number of days and ending at or after
// asof - (days-1). It gates calculations that assume a full historical span,
// such as the default trailing-year baseload window.
func (s *HalfHourlyStore) CoverageEnding(asof types.Date, days int) bool {
	if days <= 0 {
		return true
	}
	if s.Empty() {
		return false
	}
	// data must not have stopped arriving before the window of interest
	if s.end.Before(asof.AddDays(-(days - 1))) {
		return false
	}
	windowStart := s.end.AddDays(-(days - 1))
	if s.start.After(windowStart) {
		return false
	}
	present := 0
	for d := windowStart; !d.After(s.end); d = d.AddDays(1) {
		if s.DateExists(d) {
			present++
		}
	}
	return float64(days-present) <= coverageSlack*float64(days)
}
