// Package calendar classifies dates and half-hours by how the school is
// being used: term-time open/closed, weekends, holidays and community
// lettings. Classification is a pure function of the configured calendar; it
// is recomputed on demand and cheap enough not to need caching beyond the
// sorted holiday index.
package calendar

import (
	"sort"
	"time"

	"github.com/schoolwatt/schoolwatt/pkg/amr"
	"github.com/schoolwatt/schoolwatt/pkg/types"
)

// Classifier answers day-type queries for one school's calendar.
type Classifier struct {
	holidays  []types.HolidayPeriod
	schedule  map[time.Weekday]types.OpenCloseTimes
	community map[time.Weekday][]types.CommunityUseWindow
}

// NewClassifier builds a classifier. Holidays are kept sorted by start date;
// overlapping and nested holiday periods are allowed (the first match wins).
func NewClassifier(holidays []types.HolidayPeriod, schedule []types.OpenCloseTimes, community []types.CommunityUseWindow) *Classifier {
	sorted := make([]types.HolidayPeriod, len(holidays))
	copy(sorted, holidays)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	c := &Classifier{
		holidays:  sorted,
		schedule:  make(map[time.Weekday]types.OpenCloseTimes, len(schedule)),
		community: make(map[time.Weekday][]types.CommunityUseWindow),
	}
	for _, oc := range schedule {
		c.schedule[oc.Weekday] = oc
	}
	for _, w := range community {
		c.community[w.Weekday] = append(c.community[w.Weekday], w)
	}
	return c
}

// Holiday returns the holiday period containing d, if any. Periods may nest,
// so ends are not ordered and the scan cannot bisect; it stops at the first
// period starting after d instead.
func (c *Classifier) Holiday(d types.Date) (types.HolidayPeriod, bool) {
	for _, h := range c.holidays {
		if h.Start.After(d) {
			break
		}
		if h.Contains(d) {
			return h, true
		}
	}
	return types.HolidayPeriod{}, false
}

// Classify returns the top-level day type for a date. Holiday beats weekend
// beats the term-time open/closed decision; community use never changes the
// top-level type of a whole day, only individual half-hours.
func (c *Classifier) Classify(d types.Date) types.DayType {
	if _, ok := c.Holiday(d); ok {
		return types.DayTypeHoliday
	}
	if d.Weekend() {
		return types.DayTypeWeekend
	}
	if oc, ok := c.schedule[d.Weekday()]; ok && oc.OpenHalfHour < oc.CloseHalfHour {
		return types.DayTypeSchoolDayOpen
	}
	return types.DayTypeSchoolDayClosed
}

// ClassifyHalfHours classifies each of a day's 48 half-hours. On a school
// day, slots inside the opening schedule are open and the rest closed; on a
// holiday or weekend every slot carries the day's type. Community-use windows
// then override their slots regardless of the underlying type, holidays
// included, since lettings carry on when the school itself is shut.
func (c *Classifier) ClassifyHalfHours(d types.Date) [amr.HalfHoursPerDay]types.DayType {
	var slots [amr.HalfHoursPerDay]types.DayType

	switch c.Classify(d) {
	case types.DayTypeHoliday:
		fill(&slots, types.DayTypeHoliday)
	case types.DayTypeWeekend:
		fill(&slots, types.DayTypeWeekend)
	default:
		fill(&slots, types.DayTypeSchoolDayClosed)
		if oc, ok := c.schedule[d.Weekday()]; ok {
			for i := oc.OpenHalfHour; i < oc.CloseHalfHour && i < amr.HalfHoursPerDay; i++ {
				if i >= 0 {
					slots[i] = types.DayTypeSchoolDayOpen
				}
			}
		}
	}

	for _, w := range c.community[d.Weekday()] {
		for i := w.StartHalfHour; i < w.EndHalfHour && i < amr.HalfHoursPerDay; i++ {
			if i >= 0 {
				slots[i] = types.DayTypeCommunity
			}
		}
	}
	return slots
}

// SplitDay sums a day's half-hourly values by the classification of each
// half-hour. The per-class sums always add up to the day's total.
func (c *Classifier) SplitDay(d types.Date, values [amr.HalfHoursPerDay]float64) map[types.DayType]float64 {
	slots := c.ClassifyHalfHours(d)
	split := make(map[types.DayType]float64)
	for i, v := range values {
		split[slots[i]] += v
	}
	return split
}

func fill(slots *[amr.HalfHoursPerDay]types.DayType, dt types.DayType) {
	for i := range slots {
		slots[i] = dt
	}
}
