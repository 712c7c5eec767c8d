package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/schoolwatt/schoolwatt/pkg/aggregate"
	"github.com/schoolwatt/schoolwatt/pkg/amr"
	"github.com/schoolwatt/schoolwatt/pkg/baseload"
	"github.com/schoolwatt/schoolwatt/pkg/benchmark"
	"github.com/schoolwatt/schoolwatt/pkg/calendar"
	"github.com/schoolwatt/schoolwatt/pkg/log"
	"github.com/schoolwatt/schoolwatt/pkg/meter"
	"github.com/schoolwatt/schoolwatt/pkg/storage"
	"github.com/schoolwatt/schoolwatt/pkg/tariff"
	"github.com/schoolwatt/schoolwatt/pkg/types"
)

// schoolData is everything materialized for one report request: the school
// record, its calendar classifier and its meters with readings and tariffs
// loaded. It is built per request and discarded.
type schoolData struct {
	school     types.School
	classifier *calendar.Classifier
	meters     []*meter.Meter
}

// loadSchool materializes a school's data for [start, end]. Readings are
// fetched with a year of lead-in so trailing-year calculations have history
// to work with.
func (s *Server) loadSchool(ctx context.Context, schoolID string, start, end types.Date) (*schoolData, error) {
	school, err := s.storage.GetSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	cal, err := s.storage.GetCalendar(ctx, school.CalendarID)
	if err != nil {
		if !errors.Is(err, storage.ErrCalendarNotFound) {
			return nil, err
		}
		log.Ctx(ctx).WarnContext(ctx, "school has no calendar, classifying without holidays",
			slog.String("schoolID", schoolID), slog.String("calendarID", school.CalendarID))
	}
	classifier := calendar.NewClassifier(cal.Holidays, cal.Schedule, cal.Community)

	infos, err := s.storage.ListMeters(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	tariffs, err := s.storage.GetTariffs(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	d := &schoolData{school: school, classifier: classifier}
	for _, info := range infos {
		m := meter.New(info)
		m.FloorAreaM2 = school.FloorAreaM2
		m.PupilCount = school.PupilCount
		for _, t := range tariffs {
			if t.ForMeter(info, school) {
				m.Tariffs = append(m.Tariffs, t)
			}
		}
		days, err := s.storage.GetReadings(ctx, schoolID, info.ID, start.AddDays(-365), end)
		if err != nil {
			return nil, err
		}
		m.LoadReadings(ctx, days)
		d.meters = append(d.meters, m)
	}
	return d, nil
}

// mainMeters returns the school's top-level meters for a fuel. Submeters are
// excluded so aggregates never double count.
func (d *schoolData) mainMeters(fuel types.FuelType) []*meter.Meter {
	var out []*meter.Meter
	for _, m := range d.meters {
		if m.Info.FuelType == fuel && m.Info.SubmeterOf == "" {
			out = append(out, m)
		}
	}
	return out
}

// submeters returns the school's submeters for a fuel.
func (d *schoolData) submeters(fuel types.FuelType) []*meter.Meter {
	var out []*meter.Meter
	for _, m := range d.meters {
		if m.Info.FuelType == fuel && m.Info.SubmeterOf != "" {
			out = append(out, m)
		}
	}
	return out
}

// engines builds a cost engine per main meter of the fuel.
func (s *Server) engines(meters []*meter.Meter, fuel types.FuelType) []*tariff.Engine {
	figures := s.figures.Figures()
	defaults := tariff.Defaults{RatesPerKWH: figures.DefaultRates()}
	co2 := figures.CO2PerKWH(fuel)

	engines := make([]*tariff.Engine, 0, len(meters))
	for _, m := range meters {
		engines = append(engines, tariff.NewEngine(m, defaults, co2))
	}
	return engines
}

func parseFuel(r *http.Request) types.FuelType {
	if f := r.URL.Query().Get("fuel"); f != "" {
		return types.FuelType(f)
	}
	return types.FuelElectricity
}

func parseDateRange(r *http.Request) (types.Date, types.Date, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" || endStr == "" {
		return types.Date{}, types.Date{}, fmt.Errorf("start and end are required")
	}
	start, err := types.ParseDate(startStr)
	if err != nil {
		return types.Date{}, types.Date{}, err
	}
	end, err := types.ParseDate(endStr)
	if err != nil {
		return types.Date{}, types.Date{}, err
	}
	if end.Before(start) {
		return types.Date{}, types.Date{}, fmt.Errorf("end %s is before start %s", end, start)
	}
	return start, end, nil
}

// writeCalcError maps calculation errors to responses. Data-sufficiency
// failures become an explicit "insufficient data, available from X" state so
// clients never render fabricated zeros.
func writeCalcError(w http.ResponseWriter, meters []*meter.Meter, err error) {
	if errors.Is(err, types.ErrInsufficientData) || errors.Is(err, types.ErrRangeUnavailable) {
		resp := struct {
			Error         string      `json:"error"`
			State         string      `json:"state"`
			AvailableFrom *types.Date `json:"availableFrom,omitempty"`
			AvailableTo   *types.Date `json:"availableTo,omitempty"`
		}{
			Error: "insufficient data",
			State: "insufficient_data",
		}
		for _, m := range meters {
			start, end, ok := m.Store.Bounds()
			if !ok {
				continue
			}
			if resp.AvailableFrom == nil || start.After(*resp.AvailableFrom) {
				s := start
				resp.AvailableFrom = &s
			}
			if resp.AvailableTo == nil || end.Before(*resp.AvailableTo) {
				e := end
				resp.AvailableTo = &e
			}
		}
		if resp.AvailableFrom != nil {
			resp.Error = fmt.Sprintf("insufficient data, available from %s", resp.AvailableFrom)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		writeJSON(w, resp)
		return
	}
	if errors.Is(err, types.ErrUnresolvedTariff) {
		writeJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSONError(w, "calculation failed", http.StatusInternalServerError)
}

func (s *Server) handleListSchools(w http.ResponseWriter, r *http.Request) {
	schools, err := s.storage.ListSchools(r.Context())
	if err != nil {
		log.Ctx(r.Context()).ErrorContext(r.Context(), "failed to list schools", slog.Any("error", err))
		writeJSONError(w, "failed to list schools", http.StatusInternalServerError)
		return
	}
	writeJSON(w, struct {
		Schools []types.School `json:"schools"`
	}{Schools: schools})
}

type usageResponse struct {
	SchoolID string              `json:"schoolID"`
	Fuel     types.FuelType      `json:"fuel"`
	Start    types.Date          `json:"start"`
	End      types.Date          `json:"end"`
	Usage    types.CombinedUsage `json:"usage"`
	// Unavailable lists dates excluded because some meter had no tariff.
	Unavailable []types.Date `json:"unavailable,omitempty"`
}

// handleUsage returns the combined kWh, cost and CO2 for a school's meters
// of one fuel over a period.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schoolID := r.PathValue("schoolID")
	fuel := parseFuel(r)
	start, end, err := parseDateRange(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	d, err := s.loadSchool(ctx, schoolID, start, end)
	if err != nil {
		s.writeLoadError(ctx, w, schoolID, err)
		return
	}
	meters := d.mainMeters(fuel)
	if len(meters) == 0 {
		writeJSONError(w, fmt.Sprintf("school has no %s meters", fuel), http.StatusNotFound)
		return
	}

	for _, m := range meters {
		if _, err := m.Store.TotalInRange(start, end); err != nil {
			writeCalcError(w, meters, err)
			return
		}
	}

	combined := tariff.CombineFromMultipleMeters(ctx, s.engines(meters, fuel), start, end)
	skip := make(map[types.Date]bool, len(combined.Unavailable))
	for _, u := range combined.Unavailable {
		skip[u] = true
	}

	// kWh and CO2 cover the same dates the cost does
	var kwh float64
	for day := start; !day.After(end); day = day.AddDays(1) {
		if skip[day] {
			continue
		}
		for _, m := range meters {
			if t, err := m.Store.OneDayTotal(day); err == nil {
				kwh += t
			}
		}
	}

	writeJSON(w, usageResponse{
		SchoolID: schoolID,
		Fuel:     fuel,
		Start:    start,
		End:      end,
		Usage: types.CombinedUsage{
			KWH:     kwh,
			CostGBP: combined.TotalGBP(),
			CO2KG:   kwh * s.figures.Figures().CO2PerKWH(fuel),
		},
		Unavailable: combined.Unavailable,
	})
}

type seriesResponse struct {
	SchoolID string         `json:"schoolID"`
	Fuel     types.FuelType `json:"fuel"`
	Metric   string         `json:"metric"`
	*aggregate.Buckets
	PotentialSavingsKWH *float64 `json:"potentialSavingsKWH,omitempty"`
}

// handleSeries returns bucketed chart series for a school: grouping picks the
// x-axis periods and breakdown how each day's consumption is split.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schoolID := r.PathValue("schoolID")
	fuel := parseFuel(r)
	start, end, err := parseDateRange(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	grouping := aggregate.Grouping(r.URL.Query().Get("grouping"))
	if grouping == "" {
		grouping = aggregate.GroupWeek
	}
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "kwh"
	}
	switch metric {
	case "kwh", "cost", "co2":
	default:
		writeJSONError(w, fmt.Sprintf("unknown metric %q", metric), http.StatusBadRequest)
		return
	}

	d, err := s.loadSchool(ctx, schoolID, start, end)
	if err != nil {
		s.writeLoadError(ctx, w, schoolID, err)
		return
	}
	meters := d.mainMeters(fuel)
	if len(meters) == 0 {
		writeJSONError(w, fmt.Sprintf("school has no %s meters", fuel), http.StatusNotFound)
		return
	}

	breakdown := r.URL.Query().Get("breakdown")
	switch breakdown {
	case "", "none", "daytype", "heating", "submeter", "fuel":
	default:
		writeJSONError(w, fmt.Sprintf("unknown breakdown %q", breakdown), http.StatusBadRequest)
		return
	}

	series, err := s.buildSeries(ctx, d, meters, fuel, metric, breakdown)
	if err != nil {
		writeCalcError(w, meters, err)
		return
	}

	agg := aggregate.Aggregator{
		Classifier:             d.classifier,
		AcademicYearStartMonth: time.Month(d.school.AcademicYearStartMonth),
	}
	buckets, err := agg.Bucket(ctx, series, grouping, start, end)
	if err != nil {
		if errors.Is(err, types.ErrRangeUnavailable) || errors.Is(err, types.ErrInsufficientData) {
			writeCalcError(w, meters, err)
			return
		}
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if keep := r.URL.Query()["series"]; len(keep) > 0 {
		buckets = buckets.Filter(keep...)
	}

	resp := seriesResponse{
		SchoolID: schoolID,
		Fuel:     fuel,
		Metric:   metric,
		Buckets:  buckets,
	}
	versus := r.URL.Query().Get("versus")
	if versus != "" && metric == "kwh" && (breakdown == "" || breakdown == "none") {
		expected := s.figures.Figures().ExpectedKWH(fuel, benchmark.Comparator(versus),
			d.school.PupilCount, d.school.FloorAreaM2, start.DaysUntil(end)+1)
		if expected > 0 {
			savings := buckets.PotentialSavings(metric, expected)
			resp.PotentialSavingsKWH = &savings
		}
	}
	writeJSON(w, resp)
}

// buildSeries assembles the aggregator inputs for one metric and breakdown.
// The kwh metric reads the stores directly; cost and co2 derive a store per
// day through the cost engine first.
func (s *Server) buildSeries(ctx context.Context, d *schoolData, meters []*meter.Meter, fuel types.FuelType, metric, breakdown string) ([]aggregate.Series, error) {
	combined, err := s.metricStore(ctx, meters, fuel, metric)
	if err != nil {
		return nil, err
	}

	switch breakdown {
	case "", "none":
		return []aggregate.Series{{Name: metric, Store: combined}}, nil

	case "daytype":
		return []aggregate.Series{{Name: metric, Store: combined, Split: aggregate.DayTypeSplit(d.classifier)}}, nil

	case "heating":
		gas := make([]*amr.HalfHourlyStore, 0, 1)
		for _, m := range d.mainMeters(types.FuelGas) {
			gas = append(gas, m.Store)
		}
		gasStore := amr.CombineStores(ctx, gas...)
		return []aggregate.Series{{Name: metric, Store: combined, Split: aggregate.HeatingSplit(gasStore, s.heatingThresholdKWH)}}, nil

	case "submeter":
		subs := d.submeters(fuel)
		if len(subs) == 0 {
			return nil, fmt.Errorf("school has no %s submeters", fuel)
		}
		// the whole-site series rides along as the non-submeter total
		return append(aggregate.SubmeterSeries(subs),
			aggregate.Series{Name: metric, Store: combined}), nil

	case "fuel":
		var out []aggregate.Series
		for _, ft := range []types.FuelType{types.FuelElectricity, types.FuelGas, types.FuelStorageHeater, types.FuelSolarPV} {
			fuelMeters := d.mainMeters(ft)
			if len(fuelMeters) == 0 {
				continue
			}
			store, err := s.metricStore(ctx, fuelMeters, ft, metric)
			if err != nil {
				return nil, err
			}
			out = append(out, aggregate.Series{Name: string(ft), Store: store})
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown breakdown %q", breakdown)
	}
}

// metricStore combines the meters' stores for a metric. kwh sums readings
// as-is; cost and co2 price every stored day through each meter's engine
// into a derived store before combining.
func (s *Server) metricStore(ctx context.Context, meters []*meter.Meter, fuel types.FuelType, metric string) (*amr.HalfHourlyStore, error) {
	stores := make([]*amr.HalfHourlyStore, 0, len(meters))
	switch metric {
	case "kwh":
		for _, m := range meters {
			stores = append(stores, m.Store)
		}
	case "cost", "co2":
		for _, e := range s.engines(meters, fuel) {
			derived, err := deriveStore(ctx, e, metric)
			if err != nil {
				return nil, err
			}
			stores = append(stores, derived)
		}
	default:
		return nil, fmt.Errorf("unknown metric %q", metric)
	}
	return amr.CombineStores(ctx, stores...), nil
}

func deriveStore(ctx context.Context, e *tariff.Engine, metric string) (*amr.HalfHourlyStore, error) {
	derived := amr.NewStore()
	for _, date := range e.Meter().Store.Dates() {
		values := make([]float64, amr.HalfHoursPerDay)
		switch metric {
		case "cost":
			b, err := e.AccountingCost(date)
			if err != nil {
				return nil, err
			}
			for _, name := range b.ComponentNames() {
				arr := b.Components[name]
				for i, v := range arr {
					values[i] += v
				}
			}
		case "co2":
			day, _ := e.Meter().Store.Day(date)
			for i, v := range day.Values {
				values[i] = v * e.CO2PerKWH()
			}
		}
		derived.Add(ctx, date, values)
	}
	return derived, nil
}

type baseloadResponse struct {
	SchoolID   string     `json:"schoolID"`
	Start      types.Date `json:"start"`
	End        types.Date `json:"end"`
	Method     string     `json:"method"`
	BaseloadKW float64    `json:"baseloadKW"`
}

// handleBaseload returns the average always-on draw of the school's
// electricity meters. Without an explicit range it uses the trailing year of
// data.
func (s *Server) handleBaseload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schoolID := r.PathValue("schoolID")

	// default window is resolved against the data after loading
	var start, end types.Date
	var haveRange bool
	if r.URL.Query().Get("start") != "" || r.URL.Query().Get("end") != "" {
		var err error
		start, end, err = parseDateRange(r)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		haveRange = true
	} else {
		end = types.DateOf(time.Now())
		start = end.AddDays(-365)
	}

	d, err := s.loadSchool(ctx, schoolID, start, end)
	if err != nil {
		s.writeLoadError(ctx, w, schoolID, err)
		return
	}
	meters := d.mainMeters(types.FuelElectricity)
	if len(meters) == 0 {
		writeJSONError(w, "school has no electricity meters", http.StatusNotFound)
		return
	}

	stores := make([]*amr.HalfHourlyStore, 0, len(meters))
	synthetic := false
	for _, m := range meters {
		stores = append(stores, m.Store)
		if m.Info.SolarSynthetic {
			synthetic = true
		}
	}
	combined := amr.CombineStores(ctx, stores...)

	if !haveRange {
		// a trailing-year figure computed off a few weeks of feed would
		// mislead, so demand contiguous-enough coverage of the window
		tr, ok := baseload.TrailingYearRange(combined)
		if !ok || !combined.CoverageEnding(tr.End, 365) {
			writeCalcError(w, meters, types.ErrInsufficientData)
			return
		}
		start, end = tr.Start, tr.End
	}

	method := r.URL.Query().Get("method")
	var calc baseload.Calculator
	switch method {
	case "overnight":
		calc = baseload.NewOvernight(combined)
	case "statistical":
		calc = baseload.NewStatistical(combined)
	case "":
		if synthetic {
			method = "overnight"
			calc = baseload.NewOvernight(combined)
		} else {
			method = "statistical"
			calc = baseload.NewStatistical(combined)
		}
	default:
		writeJSONError(w, fmt.Sprintf("unknown method %q", method), http.StatusBadRequest)
		return
	}

	kw, err := calc.AverageBaseloadKWRange(start, end)
	if err != nil {
		writeCalcError(w, meters, err)
		return
	}

	writeJSON(w, baseloadResponse{
		SchoolID:   schoolID,
		Start:      start,
		End:        end,
		Method:     method,
		BaseloadKW: kw,
	})
}

func (s *Server) writeLoadError(ctx context.Context, w http.ResponseWriter, schoolID string, err error) {
	if errors.Is(err, storage.ErrSchoolNotFound) {
		writeJSONError(w, "school not found", http.StatusNotFound)
		return
	}
	log.Ctx(ctx).ErrorContext(ctx, "failed to load school data",
		slog.String("schoolID", schoolID), slog.Any("error", err))
	writeJSONError(w, "failed to load school data", http.StatusInternalServerError)
}
