package benchmark

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/schoolwatt/schoolwatt/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinDefaults(t *testing.T) {
	f, err := ParseFigures(defaultsYAML)
	require.NoError(t, err)

	assert.Contains(t, f.Fuels, types.FuelElectricity)
	assert.Contains(t, f.Fuels, types.FuelGas)

	rates := f.DefaultRates()
	assert.Equal(t, 0.15, rates[types.FuelElectricity])
	assert.Equal(t, 0.03, rates[types.FuelGas])

	assert.Greater(t, f.CO2PerKWH(types.FuelElectricity), 0.0)
	assert.Zero(t, f.CO2PerKWH(types.FuelType("oil")), "unknown fuel has no intensity")
}

func TestExpectedKWH(t *testing.T) {
	f := Figures{Fuels: map[types.FuelType]FuelFigures{
		types.FuelElectricity: {
			BenchmarkKWHPerPupil: 200,
			BenchmarkKWHPerM2:    50,
			ExemplarKWHPerPupil:  150,
		},
	}}

	t.Run("both bases average", func(t *testing.T) {
		// 200*300 = 60000 per pupil, 50*2000 = 100000 per m2
		got := f.ExpectedAnnualKWH(types.FuelElectricity, VersusBenchmark, 300, 2000)
		assert.InDelta(t, 80000, got, 0.001)
	})

	t.Run("single basis stands alone", func(t *testing.T) {
		got := f.ExpectedAnnualKWH(types.FuelElectricity, VersusBenchmark, 300, 0)
		assert.InDelta(t, 60000, got, 0.001)
	})

	t.Run("exemplar without a per-m2 figure uses pupils only", func(t *testing.T) {
		got := f.ExpectedAnnualKWH(types.FuelElectricity, VersusExemplar, 300, 2000)
		assert.InDelta(t, 45000, got, 0.001)
	})

	t.Run("no attributes means no estimate", func(t *testing.T) {
		assert.Zero(t, f.ExpectedAnnualKWH(types.FuelElectricity, VersusBenchmark, 0, 0))
	})

	t.Run("scaled to window length", func(t *testing.T) {
		annual := f.ExpectedAnnualKWH(types.FuelElectricity, VersusBenchmark, 300, 0)
		got := f.ExpectedKWH(types.FuelElectricity, VersusBenchmark, 300, 0, 73)
		assert.InDelta(t, annual*73/365, got, 0.001)
	})
}

func TestParseFigures(t *testing.T) {
	_, err := ParseFigures([]byte("fuels: {}"))
	assert.Error(t, err)

	_, err = ParseFigures([]byte("not: [valid: yaml"))
	assert.Error(t, err)
}

func TestProviderInit(t *testing.T) {
	t.Run("defaults only", func(t *testing.T) {
		p := &Provider{}
		require.NoError(t, p.Init(context.Background()))
		assert.Contains(t, p.Figures().Fuels, types.FuelElectricity)
	})

	t.Run("url override", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("fuels:\n  electricity:\n    benchmarkKWHPerPupil: 999\n"))
		}))
		defer srv.Close()

		p := &Provider{url: srv.URL, client: srv.Client()}
		require.NoError(t, p.Validate())
		require.NoError(t, p.Init(context.Background()))
		assert.Equal(t, 999.0, p.Figures().Fuels[types.FuelElectricity].BenchmarkKWHPerPupil)
	})

	t.Run("url failure is fatal", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		p := &Provider{url: srv.URL, client: srv.Client()}
		assert.Error(t, p.Init(context.Background()))
	})

	t.Run("missing file fails validation", func(t *testing.T) {
		p := &Provider{path: "/nonexistent/figures.yaml"}
		assert.Error(t, p.Validate())
	})
}
