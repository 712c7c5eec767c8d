package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"github.com/schoolwatt/schoolwatt/pkg/log"
	"github.com/schoolwatt/schoolwatt/pkg/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. Documents store their payload as a JSON string under "json" for
// portability; reading documents are keyed by ISO date so range queries work
// on document IDs.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// Project ID verification could be here, but we allow empty if inferred.
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) schoolCollection(schoolID, name string) (*firestore.CollectionRef, error) {
	if schoolID == "" {
		return nil, fmt.Errorf("schoolID cannot be empty")
	}
	return f.client.Collection("schools").Doc(schoolID).Collection(name), nil
}

func (f *FirestoreProvider) readingsCollection(schoolID, meterID string) (*firestore.CollectionRef, error) {
	if meterID == "" {
		return nil, fmt.Errorf("meterID cannot be empty")
	}
	meters, err := f.schoolCollection(schoolID, "meters")
	if err != nil {
		return nil, err
	}
	return meters.Doc(meterID).Collection("readings"), nil
}

// docJSON extracts the "json" payload string from a document.
func docJSON(doc *firestore.DocumentSnapshot) (string, error) {
	val, err := doc.DataAt("json")
	if err != nil {
		return "", fmt.Errorf("document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("document %s 'json' field is not a string", doc.Ref.ID)
	}
	return jsonStr, nil
}

// GetSchool retrieves a school from the "schools" collection.
func (f *FirestoreProvider) GetSchool(ctx context.Context, schoolID string) (types.School, error) {
	doc, err := f.client.Collection("schools").Doc(schoolID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.School{}, fmt.Errorf("%w: %s", ErrSchoolNotFound, schoolID)
		}
		return types.School{}, fmt.Errorf("failed to get school %s: %w", schoolID, err)
	}

	jsonStr, err := docJSON(doc)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "school doc malformed", slog.String("schoolID", schoolID), slog.Any("err", err))
		return types.School{}, err
	}

	var school types.School
	if err := json.Unmarshal([]byte(jsonStr), &school); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal school", slog.String("schoolID", schoolID), slog.Any("err", err))
		return types.School{}, fmt.Errorf("failed to unmarshal school %s: %w", schoolID, err)
	}
	return school, nil
}

// ListSchools retrieves all schools from the "schools" collection.
func (f *FirestoreProvider) ListSchools(ctx context.Context) ([]types.School, error) {
	iter := f.client.Collection("schools").Documents(ctx)
	defer iter.Stop()

	var schools []types.School
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating schools: %w", err)
		}

		jsonStr, err := docJSON(doc)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "school doc malformed", slog.String("schoolID", doc.Ref.ID), slog.Any("err", err))
			// Skip malformed documents
			continue
		}

		var school types.School
		if err := json.Unmarshal([]byte(jsonStr), &school); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal school", slog.String("schoolID", doc.Ref.ID), slog.Any("err", err))
			continue
		}
		schools = append(schools, school)
	}
	return schools, nil
}

// CreateSchool creates a new school document in the "schools" collection.
func (f *FirestoreProvider) CreateSchool(ctx context.Context, school types.School) error {
	jsonBytes, err := json.Marshal(school)
	if err != nil {
		return fmt.Errorf("failed to marshal school %s: %w", school.ID, err)
	}
	_, err = f.client.Collection("schools").Doc(school.ID).Create(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to create school %s: %w", school.ID, err)
	}
	return nil
}

// UpdateSchool updates a school document in the "schools" collection.
func (f *FirestoreProvider) UpdateSchool(ctx context.Context, school types.School) error {
	jsonBytes, err := json.Marshal(school)
	if err != nil {
		return fmt.Errorf("failed to marshal school %s: %w", school.ID, err)
	}
	_, err = f.client.Collection("schools").Doc(school.ID).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update school %s: %w", school.ID, err)
	}
	return nil
}

// ListMeters retrieves all meters for a school.
func (f *FirestoreProvider) ListMeters(ctx context.Context, schoolID string) ([]types.MeterInfo, error) {
	coll, err := f.schoolCollection(schoolID, "meters")
	if err != nil {
		return nil, err
	}
	iter := coll.Documents(ctx)
	defer iter.Stop()

	var meters []types.MeterInfo
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating meters: %w", err)
		}

		jsonStr, err := docJSON(doc)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "meter doc malformed", slog.String("meterID", doc.Ref.ID), slog.String("schoolID", schoolID), slog.Any("err", err))
			continue
		}

		var info types.MeterInfo
		if err := json.Unmarshal([]byte(jsonStr), &info); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal meter", slog.String("meterID", doc.Ref.ID), slog.String("schoolID", schoolID), slog.Any("err", err))
			continue
		}
		meters = append(meters, info)
	}
	return meters, nil
}

// UpsertMeter adds or updates a meter document under the school.
func (f *FirestoreProvider) UpsertMeter(ctx context.Context, schoolID string, info types.MeterInfo) error {
	if info.ID == "" {
		return fmt.Errorf("meter missing id")
	}
	jsonBytes, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal meter %s: %w", info.ID, err)
	}
	coll, err := f.schoolCollection(schoolID, "meters")
	if err != nil {
		return err
	}
	_, err = coll.Doc(info.ID).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert meter %s: %w", info.ID, err)
	}
	return nil
}

// UpsertReadingDay adds or updates one day of readings for a meter. The
// document ID is the ISO date for lexicographic ordering and efficient range
// queries.
func (f *FirestoreProvider) UpsertReadingDay(ctx context.Context, schoolID string, day types.ReadingDay) error {
	if day.Date.IsZero() {
		return fmt.Errorf("reading day missing date")
	}
	jsonBytes, err := json.Marshal(day)
	if err != nil {
		return fmt.Errorf("failed to marshal reading day: %w", err)
	}

	coll, err := f.readingsCollection(schoolID, day.MeterID)
	if err != nil {
		return err
	}
	_, err = coll.Doc(day.Date.String()).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
		"date": day.Date.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert reading day: %w", err)
	}
	return nil
}

// GetReadings retrieves reading days within [start, end] for a meter.
// Uses document ID range queries for efficient filtering without reading all
// documents.
func (f *FirestoreProvider) GetReadings(ctx context.Context, schoolID, meterID string, start, end types.Date) ([]types.ReadingDay, error) {
	coll, err := f.readingsCollection(schoolID, meterID)
	if err != nil {
		return nil, err
	}
	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(start.String())).
		Where(firestore.DocumentID, "<=", coll.Doc(end.String())).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var days []types.ReadingDay
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating readings: %w", err)
		}

		jsonStr, err := docJSON(doc)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "reading doc malformed", slog.String("docID", doc.Ref.ID), slog.String("meterID", meterID), slog.Any("err", err))
			return nil, err
		}

		var day types.ReadingDay
		if err := json.Unmarshal([]byte(jsonStr), &day); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal reading day", slog.String("docID", doc.Ref.ID), slog.String("meterID", meterID), slog.Any("err", err))
			return nil, fmt.Errorf("failed to unmarshal reading day (id=%s): %w", doc.Ref.ID, err)
		}
		days = append(days, day)
	}
	return days, nil
}

// GetLatestReadingDate retrieves the date of the last stored reading day for
// a meter. A zero date means the meter has no readings yet.
func (f *FirestoreProvider) GetLatestReadingDate(ctx context.Context, schoolID, meterID string) (types.Date, error) {
	coll, err := f.readingsCollection(schoolID, meterID)
	if err != nil {
		return types.Date{}, err
	}

	// firestore automatically creates indexes for top-level fields
	iter := coll.
		OrderBy("date", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return types.Date{}, nil
	}
	if err != nil {
		return types.Date{}, fmt.Errorf("failed to get latest reading doc: %w", err)
	}

	date, err := types.ParseDate(doc.Ref.ID)
	if err != nil {
		return types.Date{}, fmt.Errorf("invalid reading doc id %s: %w", doc.Ref.ID, err)
	}
	return date, nil
}

// GetTariffs retrieves every tariff applicable to the school's meters, at
// all owner levels.
func (f *FirestoreProvider) GetTariffs(ctx context.Context, schoolID string) ([]types.Tariff, error) {
	coll, err := f.schoolCollection(schoolID, "tariffs")
	if err != nil {
		return nil, err
	}
	iter := coll.Documents(ctx)
	defer iter.Stop()

	var tariffs []types.Tariff
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating tariffs: %w", err)
		}

		jsonStr, err := docJSON(doc)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "tariff doc malformed", slog.String("tariffID", doc.Ref.ID), slog.String("schoolID", schoolID), slog.Any("err", err))
			return nil, err
		}

		var t types.Tariff
		if err := json.Unmarshal([]byte(jsonStr), &t); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal tariff", slog.String("tariffID", doc.Ref.ID), slog.String("schoolID", schoolID), slog.Any("err", err))
			return nil, fmt.Errorf("failed to unmarshal tariff (id=%s): %w", doc.Ref.ID, err)
		}
		tariffs = append(tariffs, t)
	}
	return tariffs, nil
}

// UpsertTariff adds or updates a tariff document under the school.
func (f *FirestoreProvider) UpsertTariff(ctx context.Context, schoolID string, tariff types.Tariff) error {
	if tariff.ID == "" {
		return fmt.Errorf("tariff missing id")
	}
	if err := tariff.Validate(); err != nil {
		return fmt.Errorf("refusing to store invalid tariff %s: %w", tariff.ID, err)
	}
	jsonBytes, err := json.Marshal(tariff)
	if err != nil {
		return fmt.Errorf("failed to marshal tariff %s: %w", tariff.ID, err)
	}
	coll, err := f.schoolCollection(schoolID, "tariffs")
	if err != nil {
		return err
	}
	_, err = coll.Doc(tariff.ID).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert tariff %s: %w", tariff.ID, err)
	}
	return nil
}

// GetCalendar retrieves a holiday calendar from the "calendars" collection.
func (f *FirestoreProvider) GetCalendar(ctx context.Context, calendarID string) (types.Calendar, error) {
	doc, err := f.client.Collection("calendars").Doc(calendarID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Calendar{}, fmt.Errorf("%w: %s", ErrCalendarNotFound, calendarID)
		}
		return types.Calendar{}, fmt.Errorf("failed to get calendar %s: %w", calendarID, err)
	}

	jsonStr, err := docJSON(doc)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "calendar doc malformed", slog.String("calendarID", calendarID), slog.Any("err", err))
		return types.Calendar{}, err
	}

	var cal types.Calendar
	if err := json.Unmarshal([]byte(jsonStr), &cal); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal calendar", slog.String("calendarID", calendarID), slog.Any("err", err))
		return types.Calendar{}, fmt.Errorf("failed to unmarshal calendar %s: %w", calendarID, err)
	}
	return cal, nil
}

// UpsertCalendar adds or updates a calendar document.
func (f *FirestoreProvider) UpsertCalendar(ctx context.Context, calendar types.Calendar) error {
	if calendar.ID == "" {
		return fmt.Errorf("calendar missing id")
	}
	jsonBytes, err := json.Marshal(calendar)
	if err != nil {
		return fmt.Errorf("failed to marshal calendar %s: %w", calendar.ID, err)
	}
	_, err = f.client.Collection("calendars").Doc(calendar.ID).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert calendar %s: %w", calendar.ID, err)
	}
	return nil
}
