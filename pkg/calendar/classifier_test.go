package calendar

import (
	"testing"
	"time"

	"github.com/schoolwatt/schoolwatt/pkg/amr"
	"github.com/schoolwatt/schoolwatt/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClassifier() *Classifier {
	holidays := []types.HolidayPeriod{
		{Name: "summer", Start: types.NewDate(2023, time.July, 22), End: types.NewDate(2023, time.September, 3)},
		{Name: "half term", Start: types.NewDate(2023, time.February, 11), End: types.NewDate(2023, time.February, 19)},
	}
	var schedule []types.OpenCloseTimes
	for wd := time.Monday; wd <= time.Friday; wd++ {
		// 08:00 - 16:00
		schedule = append(schedule, types.OpenCloseTimes{Weekday: wd, OpenHalfHour: 16, CloseHalfHour: 32})
	}
	community := []types.CommunityUseWindow{
		// Wednesday evening five-a-side, 18:00 - 21:00
		{Name: "sports hall", Weekday: time.Wednesday, StartHalfHour: 36, EndHalfHour: 42},
	}
	return NewClassifier(holidays, schedule, community)
}

func TestClassify(t *testing.T) {
	c := testClassifier()

	tests := []struct {
		name string
		date types.Date
		want types.DayType
	}{
		{"term-time weekday", types.NewDate(2023, time.March, 6), types.DayTypeSchoolDayOpen},
		{"saturday", types.NewDate(2023, time.March, 11), types.DayTypeWeekend},
		{"sunday", types.NewDate(2023, time.March, 12), types.DayTypeWeekend},
		{"first day of half term", types.NewDate(2023, time.February, 11), types.DayTypeHoliday},
		{"last day of half term", types.NewDate(2023, time.February, 19), types.DayTypeHoliday},
		{"weekday inside summer holiday", types.NewDate(2023, time.August, 9), types.DayTypeHoliday},
		{"day after half term ends", types.NewDate(2023, time.February, 20), types.DayTypeSchoolDayOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.date))
		})
	}

	t.Run("nested holiday periods", func(t *testing.T) {
		// a year-long closure containing a shorter period: dates after the
		// inner period ends must still classify against the outer one
		holidays := []types.HolidayPeriod{
			{Name: "building works", Start: types.NewDate(2023, time.January, 1), End: types.NewDate(2023, time.August, 31)},
			{Name: "february half term", Start: types.NewDate(2023, time.February, 12), End: types.NewDate(2023, time.February, 16)},
		}
		nested := NewClassifier(holidays, nil, nil)

		h, ok := nested.Holiday(types.NewDate(2023, time.March, 1))
		require.True(t, ok)
		assert.Equal(t, "building works", h.Name)
		assert.Equal(t, types.DayTypeHoliday, nested.Classify(types.NewDate(2023, time.March, 1)))

		h, ok = nested.Holiday(types.NewDate(2023, time.February, 14))
		require.True(t, ok)
		assert.Equal(t, "building works", h.Name, "first match by start date wins")

		_, ok = nested.Holiday(types.NewDate(2023, time.September, 1))
		assert.False(t, ok)
	})

	t.Run("weekday with no schedule entry is closed", func(t *testing.T) {
		bare := NewClassifier(nil, nil, nil)
		assert.Equal(t, types.DayTypeSchoolDayClosed, bare.Classify(types.NewDate(2023, time.March, 6)))
	})
}

func TestClassifyHalfHours(t *testing.T) {
	c := testClassifier()

	t.Run("school day splits into open and closed", func(t *testing.T) {
		slots := c.ClassifyHalfHours(types.NewDate(2023, time.March, 6)) // Monday
		assert.Equal(t, types.DayTypeSchoolDayClosed, slots[0])
		assert.Equal(t, types.DayTypeSchoolDayClosed, slots[15])
		assert.Equal(t, types.DayTypeSchoolDayOpen, slots[16])
		assert.Equal(t, types.DayTypeSchoolDayOpen, slots[31])
		assert.Equal(t, types.DayTypeSchoolDayClosed, slots[32])
		assert.Equal(t, types.DayTypeSchoolDayClosed, slots[47])
	})

	t.Run("community window overrides a school evening", func(t *testing.T) {
		slots := c.ClassifyHalfHours(types.NewDate(2023, time.March, 8)) // Wednesday
		assert.Equal(t, types.DayTypeSchoolDayClosed, slots[35])
		assert.Equal(t, types.DayTypeCommunity, slots[36])
		assert.Equal(t, types.DayTypeCommunity, slots[41])
		assert.Equal(t, types.DayTypeSchoolDayClosed, slots[42])
	})

	t.Run("community window still applies within a holiday", func(t *testing.T) {
		slots := c.ClassifyHalfHours(types.NewDate(2023, time.August, 9)) // Wednesday in summer
		assert.Equal(t, types.DayTypeHoliday, slots[0])
		assert.Equal(t, types.DayTypeCommunity, slots[38])
		assert.Equal(t, types.DayTypeHoliday, slots[44])
	})

	t.Run("weekend is uniform", func(t *testing.T) {
		slots := c.ClassifyHalfHours(types.NewDate(2023, time.March, 11))
		for _, dt := range slots {
			assert.Equal(t, types.DayTypeWeekend, dt)
		}
	})
}

func TestSplitDayPartitionsTotal(t *testing.T) {
	c := testClassifier()

	var values [amr.HalfHoursPerDay]float64
	for i := range values {
		values[i] = float64(i) * 0.1
	}
	var total float64
	for _, v := range values {
		total += v
	}

	for _, d := range []types.Date{
		types.NewDate(2023, time.March, 8),  // Wednesday with community use
		types.NewDate(2023, time.August, 9), // holiday Wednesday
		types.NewDate(2023, time.March, 11), // weekend
	} {
		split := c.SplitDay(d, values)
		var sum float64
		for _, v := range split {
			sum += v
		}
		assert.InDelta(t, total, sum, 0.0001, "split for %s must sum to the day total", d)
	}
}

func TestStatistics(t *testing.T) {
	c := testClassifier()

	// a term-time fortnight: 10 school days, 4 weekend days
	start := types.NewDate(2023, time.March, 6)
	end := types.NewDate(2023, time.March, 19)

	t.Run("partitions and aggregates", func(t *testing.T) {
		stats := c.Statistics(start, end, func(d types.Date) (float64, bool) {
			if d.Weekend() {
				return 10, true
			}
			return 100, true
		})

		require.Contains(t, stats, types.DayTypeSchoolDayOpen)
		require.Contains(t, stats, types.DayTypeWeekend)
		assert.NotContains(t, stats, types.DayTypeHoliday)

		open := stats[types.DayTypeSchoolDayOpen]
		assert.Equal(t, 10, open.Count)
		assert.InDelta(t, 1000.0, open.Total, 0.0001)
		assert.InDelta(t, 100.0, open.Average, 0.0001)

		weekend := stats[types.DayTypeWeekend]
		assert.Equal(t, 4, weekend.Count)
		assert.InDelta(t, 40.0, weekend.Total, 0.0001)
	})

	t.Run("dates with no data are skipped, empty classes omitted", func(t *testing.T) {
		stats := c.Statistics(start, end, func(d types.Date) (float64, bool) {
			if d.Weekend() {
				return 0, false
			}
			return 1, true
		})
		assert.NotContains(t, stats, types.DayTypeWeekend)
		assert.Equal(t, 10, stats[types.DayTypeSchoolDayOpen].Count)
	})
}
