package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/schoolwatt/schoolwatt/pkg/log"
	"github.com/schoolwatt/schoolwatt/pkg/storage"
	"github.com/schoolwatt/schoolwatt/pkg/types"
)

func main() {
	os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	s := storage.Configured()
	lflag.Configure()

	ctx := context.Background()

	log.Ctx(ctx).InfoContext(ctx, "seeding mock data")

	// Use a new random source
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	today := types.DateOf(time.Now())
	thisYear := today.Year

	cal := types.Calendar{
		ID:   "demo-calendar",
		Name: "Demo LA calendar",
		Holidays: []types.HolidayPeriod{
			{Name: "christmas", Start: types.NewDate(thisYear-1, time.December, 20), End: types.NewDate(thisYear, time.January, 3)},
			{Name: "february half term", Start: types.NewDate(thisYear, time.February, 12), End: types.NewDate(thisYear, time.February, 16)},
			{Name: "easter", Start: types.NewDate(thisYear, time.March, 29), End: types.NewDate(thisYear, time.April, 12)},
			{Name: "may half term", Start: types.NewDate(thisYear, time.May, 27), End: types.NewDate(thisYear, time.May, 31)},
			{Name: "summer", Start: types.NewDate(thisYear, time.July, 22), End: types.NewDate(thisYear, time.September, 2)},
		},
	}
	// Mon-Fri 08:00-16:00 (half-hours 16 to 32)
	for wd := time.Monday; wd <= time.Friday; wd++ {
		cal.Schedule = append(cal.Schedule, types.OpenCloseTimes{
			Weekday:       wd,
			OpenHalfHour:  16,
			CloseHalfHour: 32,
		})
	}
	if err := s.UpsertCalendar(ctx, cal); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed calendar", "error", err)
		os.Exit(1)
	}

	school := types.School{
		ID:          "demo-primary",
		Name:        "Demo Primary School",
		CalendarID:  cal.ID,
		PupilCount:  240,
		FloorAreaM2: 1800,
		CountryCode: "GB",
	}
	if err := s.CreateSchool(ctx, school); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed school", "error", err)
		os.Exit(1)
	}

	elec := types.MeterInfo{
		ID:       "1200051234567",
		SchoolID: school.ID,
		FuelType: types.FuelElectricity,
		Name:     "Main",
	}
	kitchen := types.MeterInfo{
		ID:         "1200051234568",
		SchoolID:   school.ID,
		FuelType:   types.FuelElectricity,
		Name:       "Kitchen",
		SubmeterOf: elec.ID,
	}
	gas := types.MeterInfo{
		ID:       "8812345601",
		SchoolID: school.ID,
		FuelType: types.FuelGas,
		Name:     "Boiler house",
	}
	for _, info := range []types.MeterInfo{elec, kitchen, gas} {
		if err := s.UpsertMeter(ctx, school.ID, info); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed meter", "error", err)
			os.Exit(1)
		}
	}

	tariffs := []types.Tariff{
		{
			ID:        "demo-elec-day-night",
			Name:      "Demo electricity day/night",
			FuelType:  types.FuelElectricity,
			Level:     types.TariffLevelSchool,
			OwnerID:   school.ID,
			StartDate: types.NewDate(thisYear-2, time.April, 1),
			CreatedAt: time.Now().UTC(),
			Kind:      types.RateKindDifferential,
			DifferentialRates: []types.DifferentialRate{
				{Name: "night", StartHalfHour: 0, EndHalfHour: 14, RatePerKWH: 0.12},
				{Name: "day", StartHalfHour: 14, EndHalfHour: 48, RatePerKWH: 0.28},
			},
			StandingCharges: []types.StandingCharge{
				{Name: "standing charge", RateGBP: 1.20, Cadence: types.ChargePerDay},
			},
		},
		{
			ID:             "demo-gas-flat",
			Name:           "Demo gas",
			FuelType:       types.FuelGas,
			Level:          types.TariffLevelSchool,
			OwnerID:        school.ID,
			StartDate:      types.NewDate(thisYear-2, time.April, 1),
			CreatedAt:      time.Now().UTC(),
			Kind:           types.RateKindFlat,
			FlatRatePerKWH: 0.055,
			StandingCharges: []types.StandingCharge{
				{Name: "standing charge", RateGBP: 25.0, Cadence: types.ChargePerMonth},
			},
		},
	}
	for _, t := range tariffs {
		if err := s.UpsertTariff(ctx, school.ID, t); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed tariff", "error", err)
			os.Exit(1)
		}
	}

	holiday := func(d types.Date) bool {
		for _, h := range cal.Holidays {
			if h.Contains(d) {
				return true
			}
		}
		return false
	}

	// A year of half-hourly readings ending yesterday. Electricity follows a
	// school-day bell curve on top of an always-on baseload, the kitchen peaks
	// around lunch, and gas burns on cold-season school days.
	start := today.AddDays(-365)
	for d := start; d.Before(today); d = d.AddDays(1) {
		occupied := !d.Weekend() && !holiday(d)
		winter := d.Month <= time.March || d.Month >= time.November

		elecValues := make([]float64, 48)
		kitchenValues := make([]float64, 48)
		gasValues := make([]float64, 48)
		for i := 0; i < 48; i++ {
			// baseload ~4kW, so 2 kWh per half-hour
			v := 2.0 + rng.Float64()*0.3
			if occupied && i >= 14 && i < 34 {
				// bell curve peaking mid-day
				dist := float64(i) - 24.0
				v += 12.0 * math.Exp(-(dist*dist)/60.0)
			}
			elecValues[i] = v

			if occupied && i >= 20 && i < 28 {
				kitchenValues[i] = 2.5 + rng.Float64()*0.5
			} else {
				kitchenValues[i] = 0.1
			}

			if winter && occupied && i >= 10 && i < 34 {
				gasValues[i] = 8.0 + rng.Float64()*2.0
			}
		}

		for _, day := range []types.ReadingDay{
			{MeterID: elec.ID, Date: d, Values: elecValues},
			{MeterID: kitchen.ID, Date: d, Values: kitchenValues},
			{MeterID: gas.ID, Date: d, Values: gasValues},
		} {
			if err := s.UpsertReadingDay(ctx, school.ID, day); err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "failed to seed readings", "error", err)
				os.Exit(1)
			}
		}
	}

	fmt.Printf("Seeded %s with 365 days of readings across %d meters\n", school.Name, 3)

	log.Ctx(ctx).InfoContext(ctx, "seeded mock data successfully")
}
