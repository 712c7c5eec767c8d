package types

import "time"

// DayType classifies a date (or an individual half-hour, where community-use
// schedules split a day) by how the school premises are being used.
type DayType string

const (
	DayTypeHoliday         DayType = "holiday"
	DayTypeWeekend         DayType = "weekend"
	DayTypeSchoolDayOpen   DayType = "school_day_open"
	DayTypeSchoolDayClosed DayType = "school_day_closed"
	DayTypeCommunity       DayType = "community"
)

// DayTypes lists every classification, in report ordering.
var DayTypes = []DayType{
	DayTypeHoliday,
	DayTypeWeekend,
	DayTypeSchoolDayOpen,
	DayTypeSchoolDayClosed,
	DayTypeCommunity,
}

// HolidayPeriod is one school holiday, inclusive of both end dates.
type HolidayPeriod struct {
	Name  string `json:"name"`
	Start Date   `json:"start"`
	End   Date   `json:"end"`
}

// Contains reports whether d falls within the holiday.
func (h HolidayPeriod) Contains(d Date) bool {
	return !d.Before(h.Start) && !d.After(h.End)
}

// OpenCloseTimes is a school's term-time opening schedule for one weekday,
// expressed as half-hour indices (0 = midnight-00:30, 47 = 23:30-midnight).
// OpenHalfHour is inclusive, CloseHalfHour exclusive. A weekday with no
// schedule entry is treated as closed all day.
type OpenCloseTimes struct {
	Weekday       time.Weekday `json:"weekday"`
	OpenHalfHour  int          `json:"openHalfHour"`
	CloseHalfHour int          `json:"closeHalfHour"`
}

// CommunityUseWindow is a recurring out-of-hours letting (sports clubs,
// evening classes) on one weekday. StartHalfHour is inclusive, EndHalfHour
// exclusive. Community use applies within holidays too when configured.
type CommunityUseWindow struct {
	Name          string       `json:"name"`
	Weekday       time.Weekday `json:"weekday"`
	StartHalfHour int          `json:"startHalfHour"`
	EndHalfHour   int          `json:"endHalfHour"`
}

// Calendar is the stored holiday/term calendar a school references. Local
// authorities share calendars across their schools, so calendars live
// alongside schools rather than inside them.
type Calendar struct {
	ID        string               `json:"id"`
	Name      string               `json:"name,omitempty"`
	Holidays  []HolidayPeriod      `json:"holidays"`
	Schedule  []OpenCloseTimes     `json:"schedule,omitempty"`
	Community []CommunityUseWindow `json:"community,omitempty"`
}
