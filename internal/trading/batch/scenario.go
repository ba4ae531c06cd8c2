package batch

import (
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/Alias1177/SmartVest/internal/model"
)

// MinWindowDays keeps every scenario start at least this far before the
// latest allowed date
const MinWindowDays = 180

// Scenario is one randomly drawn trial window
type Scenario struct {
	ID      string
	Profile model.Profile
	Start   time.Time
	End     time.Time
}

// GeneratorOptions bounds the random windows
type GeneratorOptions struct {
	Earliest   time.Time
	Latest     time.Time
	LengthDays int
	// Profile pins every scenario to one profile; empty draws from Profiles
	Profile  model.Profile
	Profiles []model.Profile
	Seed     int64
}

// DefaultGeneratorOptions mirrors the historical study window
func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{
		Earliest:   time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		Latest:     time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		LengthDays: 365,
		Profiles:   model.Profiles(),
		Seed:       time.Now().UnixNano(),
	}
}

// GenerateScenarios draws n windows of LengthDays calendar days. Starts are
// uniform over [Earliest, Latest-180d]; ends are clamped to Latest. The same
// seed yields the same scenarios, IDs included.
func GenerateScenarios(n int, opts GeneratorOptions) ([]Scenario, error) {
	if n <= 0 {
		return nil, errors.New("scenario count must be positive")
	}
	if opts.LengthDays <= 0 {
		return nil, errors.New("scenario length must be positive")
	}
	earliest, latest := model.Day(opts.Earliest), model.Day(opts.Latest)
	lastStart := latest.AddDate(0, 0, -MinWindowDays)
	if lastStart.Before(earliest) {
		return nil, errors.New("date range is shorter than the minimum window")
	}
	profiles := opts.Profiles
	if opts.Profile != "" {
		profiles = []model.Profile{opts.Profile}
	}
	if len(profiles) == 0 {
		return nil, errors.New("no profiles to draw from")
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	span := int(lastStart.Sub(earliest).Hours()/24) + 1

	scenarios := make([]Scenario, 0, n)
	for i := 0; i < n; i++ {
		start := earliest.AddDate(0, 0, rng.Intn(span))
		end := start.AddDate(0, 0, opts.LengthDays)
		if end.After(latest) {
			end = latest
		}
		profile := profiles[rng.Intn(len(profiles))]

		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, Scenario{ID: id.String(), Profile: profile, Start: start, End: end})
	}
	return scenarios, nil
}
