// Package meter models physical and aggregate school meters: the owner of a
// half-hourly consumption store plus the tariffs and benchmarking attributes
// attached to it.
package meter

import (
	"context"
	"math"

	"github.com/schoolwatt/schoolwatt/pkg/amr"
	"github.com/schoolwatt/schoolwatt/pkg/types"
)

// Meter is one metered energy stream. It owns its HalfHourlyStore; downstream
// consumers (cost engine, baseload, aggregator) read the store but never
// mutate it.
type Meter struct {
	Info    types.MeterInfo
	Store   *amr.HalfHourlyStore
	Tariffs []types.Tariff

	// benchmarking attributes, copied down from the school when set
	FloorAreaM2 float64
	PupilCount  int
}

// New returns a meter with an empty store.
func New(info types.MeterInfo) *Meter {
	return &Meter{
		Info:  info,
		Store: amr.NewStore(),
	}
}

// LoadReadings populates the meter's store from stored reading days. Missing
// half-hours are carried through as gaps rather than zeros.
func (m *Meter) LoadReadings(ctx context.Context, days []types.ReadingDay) {
	for _, day := range days {
		values := make([]float64, len(day.Values))
		copy(values, day.Values)
		for _, i := range day.Missing {
			if i >= 0 && i < len(values) {
				values[i] = math.NaN()
			}
		}
		m.Store.Add(ctx, day.Date, values)
	}
}
