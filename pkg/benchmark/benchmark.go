// Package benchmark supplies the externally curated reference figures the
// calculations compare schools against: benchmark and exemplar annual
// consumption per pupil and per square metre, carbon intensity per fuel and
// the system default tariff rates. Figures ship as built-in defaults and can
// be overridden from a YAML file or URL.
package benchmark

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/schoolwatt/schoolwatt/pkg/common"
	"github.com/schoolwatt/schoolwatt/pkg/log"
	"github.com/schoolwatt/schoolwatt/pkg/types"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Comparator names which reference figure to compare against. Benchmark is
// the typical well-managed school; exemplar is the best 10 percent.
type Comparator string

const (
	VersusBenchmark Comparator = "benchmark"
	VersusExemplar  Comparator = "exemplar"
)

// FuelFigures holds the reference figures for one fuel.
type FuelFigures struct {
	BenchmarkKWHPerPupil float64 `yaml:"benchmarkKWHPerPupil"`
	BenchmarkKWHPerM2    float64 `yaml:"benchmarkKWHPerM2"`
	ExemplarKWHPerPupil  float64 `yaml:"exemplarKWHPerPupil"`
	ExemplarKWHPerM2     float64 `yaml:"exemplarKWHPerM2"`
	CO2KGPerKWH          float64 `yaml:"co2KGPerKWH"`
	DefaultRatePerKWH    float64 `yaml:"defaultRatePerKWH"`
}

// Figures is the full reference set, keyed by fuel.
type Figures struct {
	Fuels map[types.FuelType]FuelFigures `yaml:"fuels"`
}

// ParseFigures decodes a YAML figures document.
func ParseFigures(data []byte) (Figures, error) {
	var f Figures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Figures{}, fmt.Errorf("failed to parse benchmark figures: %w", err)
	}
	if len(f.Fuels) == 0 {
		return Figures{}, fmt.Errorf("benchmark figures list no fuels")
	}
	return f, nil
}

// ExpectedAnnualKWH estimates a school's expected annual consumption for a
// fuel against the chosen reference. Per-pupil and per-floor-area estimates
// are averaged when both attributes are known; with only one the other basis
// is ignored. Returns 0 when the fuel has no figures or the school has
// neither attribute.
func (f Figures) ExpectedAnnualKWH(fuel types.FuelType, versus Comparator, pupils int, floorAreaM2 float64) float64 {
	fig, ok := f.Fuels[fuel]
	if !ok {
		return 0
	}
	perPupil, perM2 := fig.BenchmarkKWHPerPupil, fig.BenchmarkKWHPerM2
	if versus == VersusExemplar {
		perPupil, perM2 = fig.ExemplarKWHPerPupil, fig.ExemplarKWHPerM2
	}
	var total float64
	var bases int
	if pupils > 0 && perPupil > 0 {
		total += perPupil * float64(pupils)
		bases++
	}
	if floorAreaM2 > 0 && perM2 > 0 {
		total += perM2 * floorAreaM2
		bases++
	}
	if bases == 0 {
		return 0
	}
	return total / float64(bases)
}

// ExpectedKWH scales the annual estimate down to a window of days.
func (f Figures) ExpectedKWH(fuel types.FuelType, versus Comparator, pupils int, floorAreaM2 float64, days int) float64 {
	return f.ExpectedAnnualKWH(fuel, versus, pupils, floorAreaM2) * float64(days) / 365.0
}

// CO2PerKWH returns the carbon intensity for a fuel, 0 if unknown.
func (f Figures) CO2PerKWH(fuel types.FuelType) float64 {
	return f.Fuels[fuel].CO2KGPerKWH
}

// DefaultRates returns the system default flat rates per fuel, shaped for
// the cost engine's fallback tariff.
func (f Figures) DefaultRates() map[types.FuelType]float64 {
	rates := make(map[types.FuelType]float64, len(f.Fuels))
	for fuel, fig := range f.Fuels {
		if fig.DefaultRatePerKWH > 0 {
			rates[fuel] = fig.DefaultRatePerKWH
		}
	}
	return rates
}

// Provider loads figures at startup and hands out immutable snapshots.
type Provider struct {
	path   string
	url    string
	client *http.Client

	mu      sync.RWMutex
	figures Figures
}

// Configured sets up flags for the benchmark figures source.
func Configured() *Provider {
	p := &Provider{
		client: common.HTTPClient(10 * time.Second),
	}
	path := lflag.String("benchmark-file", "", "path to a YAML file overriding the built-in benchmark figures")
	u := lflag.String("benchmark-url", "", "URL to fetch YAML benchmark figures from at startup")

	lflag.Do(func() {
		p.path = *path
		p.url = *u
	})

	return p
}

// Validate ensures the configuration is usable.
func (p *Provider) Validate() error {
	if p.url != "" {
		if _, err := url.Parse(p.url); err != nil {
			return fmt.Errorf("failed to parse benchmark url (%s): %w", p.url, err)
		}
	}
	if p.path != "" {
		if _, err := os.Stat(p.path); err != nil {
			return fmt.Errorf("benchmark file %s: %w", p.path, err)
		}
	}
	return nil
}

// Init loads the built-in defaults, then the override file, then the
// override URL, last writer wins.
func (p *Provider) Init(ctx context.Context) error {
	figures, err := ParseFigures(defaultsYAML)
	if err != nil {
		return fmt.Errorf("built-in benchmark figures are invalid: %w", err)
	}

	if p.path != "" {
		data, err := os.ReadFile(p.path)
		if err != nil {
			return fmt.Errorf("failed to read benchmark file: %w", err)
		}
		if figures, err = ParseFigures(data); err != nil {
			return err
		}
		log.Ctx(ctx).InfoContext(ctx, "loaded benchmark figures from file", "path", p.path)
	}

	if p.url != "" {
		fetched, err := p.fetch(ctx)
		if err != nil {
			return err
		}
		figures = fetched
		log.Ctx(ctx).InfoContext(ctx, "loaded benchmark figures from url", "url", p.url)
	}

	p.mu.Lock()
	p.figures = figures
	p.mu.Unlock()
	return nil
}

// Figures returns the current figure set.
func (p *Provider) Figures() Figures {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.figures
}

// SetFigures replaces the figure set. This is primarily used for testing.
func (p *Provider) SetFigures(f Figures) {
	p.mu.Lock()
	p.figures = f
	p.mu.Unlock()
}

func (p *Provider) fetch(ctx context.Context) (Figures, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", p.url, nil)
	if err != nil {
		return Figures{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Figures{}, fmt.Errorf("failed to fetch benchmark figures: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Figures{}, fmt.Errorf("benchmark url returned status: %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Figures{}, fmt.Errorf("failed to read benchmark response: %w", err)
	}
	return ParseFigures(data)
}
