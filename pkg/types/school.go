package types

// FuelType identifies the energy stream a meter measures.
type FuelType string

const (
	FuelElectricity   FuelType = "electricity"
	FuelGas           FuelType = "gas"
	FuelStorageHeater FuelType = "storage_heater"
	FuelSolarPV       FuelType = "solar_pv"
	FuelExportedSolar FuelType = "exported_solar_pv"
)

// School is the top of the meter hierarchy. Schools may belong to a group
// (multi-academy trust), which is one of the tariff owner levels.
type School struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	GroupID      string  `json:"groupID,omitempty"`
	CalendarID   string  `json:"calendarID"`
	FloorAreaM2  float64 `json:"floorAreaM2,omitempty"`
	PupilCount   int     `json:"pupilCount,omitempty"`
	CountryCode  string  `json:"countryCode,omitempty"`
	// AcademicYearStartMonth is 1-12; 0 means the September default.
	AcademicYearStartMonth int `json:"academicYearStartMonth,omitempty"`
}

// MeterInfo is the stored description of a physical or aggregate meter.
// MPAN identifies electricity meters, MPRN gas meters; the generic ID is
// whichever applies.
type MeterInfo struct {
	ID       string   `json:"id"`
	SchoolID string   `json:"schoolID"`
	FuelType FuelType `json:"fuelType"`
	Name     string   `json:"name,omitempty"`
	// SubmeterOf names the parent meter when this is a submeter.
	SubmeterOf string `json:"submeterOf,omitempty"`
	// SolarSynthetic marks meters whose PV stream is Sheffield-synthesised
	// rather than measured; baseload calculation treats these differently.
	SolarSynthetic bool `json:"solarSynthetic,omitempty"`
}

// ReadingDay is one stored day of half-hourly readings for one meter.
// Half-hours that never arrived or failed validation are listed in Missing
// (their Values entry is meaningless); a day with no data at all simply has
// no ReadingDay.
type ReadingDay struct {
	MeterID string    `json:"meterID"`
	Date    Date      `json:"date"`
	Values  []float64 `json:"values"`
	Missing []int     `json:"missing,omitempty"`
}
