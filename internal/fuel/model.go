// Package fuel estimates fuel burn and CO2 emissions from phase durations
// using a per-aircraft-model table of hourly burn rates.
package fuel

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/listerineh/flight-emissions/internal/phases"
)

// CO2PerKgFuel is the jet fuel combustion constant: kg of CO2 emitted per kg
// of fuel burned.
const CO2PerKgFuel = 3.16

// DefaultProfileKey is the table entry used when a model is unknown
const DefaultProfileKey = "default"

// defaultSeats is the final seat-count fallback when even the default
// profile omits one
const defaultSeats = 150

// Profile holds the phase burn rates (kg/hour) and seat count for one
// aircraft model
type Profile struct {
	Rates map[string]float64
	Seats int
}

// UnmarshalJSON decodes the flat on-disk profile shape, where phase rates
// and the seat count share one object: {"takeoff": 500, ..., "seats": 150}
func (p *Profile) UnmarshalJSON(data []byte) error {
	var fields map[string]float64
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	p.Rates = make(map[string]float64, len(fields))
	for key, value := range fields {
		if key == "seats" {
			p.Seats = int(value)
			continue
		}
		p.Rates[key] = value
	}
	return nil
}

// Table is the loaded fuel profile table, keyed by aircraft model string
type Table struct {
	profiles map[string]Profile
}

// LoadTable reads the fuel profile table from the given JSON file. A missing
// or invalid table, or one without a default profile, is a startup error.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fuel profiles: %w", err)
	}

	var profiles map[string]Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse fuel profiles: %w", err)
	}

	if _, ok := profiles[DefaultProfileKey]; !ok {
		return nil, fmt.Errorf("fuel profile table %s has no %q entry", path, DefaultProfileKey)
	}

	return &Table{profiles: profiles}, nil
}

// NewTable builds a table directly from profiles (used in tests)
func NewTable(profiles map[string]Profile) (*Table, error) {
	if _, ok := profiles[DefaultProfileKey]; !ok {
		return nil, fmt.Errorf("fuel profile table has no %q entry", DefaultProfileKey)
	}
	return &Table{profiles: profiles}, nil
}

// Estimate is the fuel and CO2 estimation result for one flight
type Estimate struct {
	FuelKg            map[string]float64 // kg of fuel per phase
	CO2Kg             map[string]float64 // kg of CO2 per phase
	CO2TotalKg        float64
	CO2PerPassengerKg float64
	Seats             int
}

// Estimate computes per-phase fuel burn and CO2 for the given durations and
// aircraft model. Unknown models fall back to the default profile; a phase
// missing from the chosen profile burns at rate zero.
func (t *Table) Estimate(durations phases.Durations, model string) Estimate {
	profile, ok := t.profiles[model]
	if !ok {
		profile = t.profiles[DefaultProfileKey]
	}

	fuelKg := make(map[string]float64, len(phases.Names))
	co2Kg := make(map[string]float64, len(phases.Names))
	var co2Total float64

	for _, phase := range phases.Names {
		hours := float64(durations.ByName(phase)) / 3600
		fuel := round2(hours * profile.Rates[phase])
		co2 := round2(fuel * CO2PerKgFuel)
		fuelKg[phase] = fuel
		co2Kg[phase] = co2
		co2Total += co2
	}
	co2Total = round2(co2Total)

	seats := t.resolveSeats(profile)

	return Estimate{
		FuelKg:            fuelKg,
		CO2Kg:             co2Kg,
		CO2TotalKg:        co2Total,
		CO2PerPassengerKg: round2(co2Total / float64(seats)),
		Seats:             seats,
	}
}

// resolveSeats falls back from the chosen profile to the default profile to
// a fixed literal, in that order
func (t *Table) resolveSeats(profile Profile) int {
	if profile.Seats > 0 {
		return profile.Seats
	}
	if fallback := t.profiles[DefaultProfileKey]; fallback.Seats > 0 {
		return fallback.Seats
	}
	return defaultSeats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
