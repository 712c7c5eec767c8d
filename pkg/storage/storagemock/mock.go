package storagemock

import (
	"context"

	"github.com/schoolwatt/schoolwatt/pkg/storage"
	"github.com/schoolwatt/schoolwatt/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetSchool(ctx context.Context, schoolID string) (types.School, error) {
	args := m.Called(ctx, schoolID)
	if len(args) > 0 {
		return args.Get(0).(types.School), args.Error(1)
	}
	return types.School{}, nil
}

func (m *MockDatabase) ListSchools(ctx context.Context) ([]types.School, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).([]types.School), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) CreateSchool(ctx context.Context, school types.School) error {
	args := m.Called(ctx, school)
	return args.Error(0)
}

func (m *MockDatabase) UpdateSchool(ctx context.Context, school types.School) error {
	args := m.Called(ctx, school)
	return args.Error(0)
}

func (m *MockDatabase) ListMeters(ctx context.Context, schoolID string) ([]types.MeterInfo, error) {
	args := m.Called(ctx, schoolID)
	if len(args) > 0 {
		return args.Get(0).([]types.MeterInfo), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) UpsertMeter(ctx context.Context, schoolID string, info types.MeterInfo) error {
	args := m.Called(ctx, schoolID, info)
	return args.Error(0)
}

func (m *MockDatabase) UpsertReadingDay(ctx context.Context, schoolID string, day types.ReadingDay) error {
	args := m.Called(ctx, schoolID, day)
	return args.Error(0)
}

func (m *MockDatabase) GetReadings(ctx context.Context, schoolID, meterID string, start, end types.Date) ([]types.ReadingDay, error) {
	args := m.Called(ctx, schoolID, meterID, start, end)
	if len(args) > 0 {
		return args.Get(0).([]types.ReadingDay), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) GetLatestReadingDate(ctx context.Context, schoolID, meterID string) (types.Date, error) {
	args := m.Called(ctx, schoolID, meterID)
	if len(args) > 0 {
		return args.Get(0).(types.Date), args.Error(1)
	}
	return types.Date{}, nil
}

func (m *MockDatabase) GetTariffs(ctx context.Context, schoolID string) ([]types.Tariff, error) {
	args := m.Called(ctx, schoolID)
	if len(args) > 0 {
		return args.Get(0).([]types.Tariff), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) UpsertTariff(ctx context.Context, schoolID string, tariff types.Tariff) error {
	args := m.Called(ctx, schoolID, tariff)
	return args.Error(0)
}

func (m *MockDatabase) GetCalendar(ctx context.Context, calendarID string) (types.Calendar, error) {
	args := m.Called(ctx, calendarID)
	if len(args) > 0 {
		return args.Get(0).(types.Calendar), args.Error(1)
	}
	return types.Calendar{}, nil
}

func (m *MockDatabase) UpsertCalendar(ctx context.Context, calendar types.Calendar) error {
	args := m.Called(ctx, calendar)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
