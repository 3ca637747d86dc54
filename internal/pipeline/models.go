package pipeline

import (
	"github.com/listerineh/flight-emissions/internal/phases"
	"github.com/listerineh/flight-emissions/internal/trajectory"
)

// ProcessedFlight is the terminal artifact of one pipeline run for one
// flight: identity, route, computed distance, phase durations, fuel and CO2
// estimates, and the retained raw point sequence. Records are created once
// per flight per run and are immutable after creation.
type ProcessedFlight struct {
	FlightID          string             `json:"fr24_id"`
	Flight            string             `json:"flight,omitempty"`
	Callsign          string             `json:"callsign"`
	AircraftModel     string             `json:"aircraft_model"`
	AircraftReg       string             `json:"aircraft_reg,omitempty"`
	DepartureICAO     string             `json:"departure_icao,omitempty"`
	ArrivalICAO       string             `json:"arrival_icao,omitempty"`
	DepartureTimeUTC  string             `json:"departure_time_utc,omitempty"`
	ArrivalTimeUTC    string             `json:"arrival_time_utc,omitempty"`
	FlightDurationS   *int64             `json:"flight_duration_s,omitempty"`
	DistanceKm        float64            `json:"distance_calculated_km"`
	GreatCircleKm     *float64           `json:"great_circle_distance_km,omitempty"`
	PhaseDurationsS   phases.Durations   `json:"phase_durations_s"`
	FuelEstimatedKg   map[string]float64 `json:"fuel_estimated_kg"`
	CO2EstimatedKg    map[string]float64 `json:"co2_estimated_kg"`
	CO2TotalKg        float64            `json:"co2_total_kg"`
	CO2PerPassengerKg float64            `json:"co2_per_passenger_kg"`
	Points            []trajectory.Point `json:"raw_flight_path_points"`
}

// Report summarizes what a run resolved and what failed at each stage, so
// operators can decide whether to retry the failed subset
type Report struct {
	RunDir           string   `json:"run_dir"`
	Collected        int      `json:"collected_flights"`
	Processed        int      `json:"processed_flights"`
	SkippedFlights   int      `json:"skipped_flights"` // Below the minimum point count
	FailedTicks      []int64  `json:"failed_ticks"`
	FailedSummaryIDs []string `json:"failed_summary_ids"`
}
