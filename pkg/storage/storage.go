// Package storage persists schools, meters, readings, tariffs and calendars.
// The core calculations never touch storage directly; callers materialize
// readings into stores before running them.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/levenlabs/go-lflag"
	"github.com/schoolwatt/schoolwatt/pkg/types"
)

var (
	ErrSchoolNotFound   = errors.New("school not found")
	ErrCalendarNotFound = errors.New("calendar not found")
)

// Database defines the interface for persisting data.
type Database interface {
	// Schools
	GetSchool(ctx context.Context, schoolID string) (types.School, error)
	ListSchools(ctx context.Context) ([]types.School, error)
	CreateSchool(ctx context.Context, school types.School) error
	UpdateSchool(ctx context.Context, school types.School) error

	// Meters & readings
	ListMeters(ctx context.Context, schoolID string) ([]types.MeterInfo, error)
	UpsertMeter(ctx context.Context, schoolID string, info types.MeterInfo) error
	UpsertReadingDay(ctx context.Context, schoolID string, day types.ReadingDay) error
	GetReadings(ctx context.Context, schoolID, meterID string, start, end types.Date) ([]types.ReadingDay, error)
	GetLatestReadingDate(ctx context.Context, schoolID, meterID string) (types.Date, error)

	// Tariffs, all owner levels that apply to the school's meters
	GetTariffs(ctx context.Context, schoolID string) ([]types.Tariff, error)
	UpsertTariff(ctx context.Context, schoolID string, tariff types.Tariff) error

	// Calendars
	GetCalendar(ctx context.Context, calendarID string) (types.Calendar, error)
	UpsertCalendar(ctx context.Context, calendar types.Calendar) error

	// Lifecycle
	Close() error
}

// Configured sets up the storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
