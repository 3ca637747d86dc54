// Package pipeline sequences the processing stages of one run: snapshot
// collection, summary fetching, trajectory assembly, phase segmentation,
// distance computation, and fuel/CO2 estimation, ending in processed flight
// records handed to the persistence sink.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/listerineh/flight-emissions/internal/collector"
	"github.com/listerineh/flight-emissions/internal/fuel"
	"github.com/listerineh/flight-emissions/internal/phases"
	"github.com/listerineh/flight-emissions/internal/summaries"
	"github.com/listerineh/flight-emissions/internal/tracking"
	"github.com/listerineh/flight-emissions/internal/trajectory"
	"github.com/listerineh/flight-emissions/pkg/logger"
)

// Collector produces per-flight position accumulations for a time window
type Collector interface {
	Run(ctx context.Context, windowStart time.Time) (*collector.Result, error)
}

// SummaryFetcher resolves flight metadata for many identifiers
type SummaryFetcher interface {
	Fetch(ctx context.Context, designators map[string]string, windowStart, windowEnd time.Time) *summaries.Result
}

// Sink accepts processed flight records for durable storage. Implementations
// must upsert idempotently: re-processing a flight id must not create
// duplicates.
type Sink interface {
	SaveProcessedFlight(ctx context.Context, flight *ProcessedFlight) error
}

// Service orchestrates one full processing run
type Service struct {
	collector Collector
	fetcher   SummaryFetcher
	segmenter *phases.Segmenter
	fuelTable *fuel.Table
	sink      Sink
	runDir    *RunDir
	minPoints int
	logger    *logger.Logger
}

// NewService creates a pipeline service. The sink may be nil when a run
// should only produce file artifacts.
func NewService(
	col Collector,
	fetcher SummaryFetcher,
	segmenter *phases.Segmenter,
	fuelTable *fuel.Table,
	sink Sink,
	runDir *RunDir,
	minPoints int,
	loggerObj *logger.Logger,
) *Service {
	return &Service{
		collector: col,
		fetcher:   fetcher,
		segmenter: segmenter,
		fuelTable: fuelTable,
		sink:      sink,
		runDir:    runDir,
		minPoints: minPoints,
		logger:    loggerObj.Named("pipeline"),
	}
}

// Run executes one full collection and processing run over the given window.
// The run completes whatever individual ticks, batches or flights fail along
// the way; those failures are reported, not raised. Only context
// cancellation aborts a run early.
func (s *Service) Run(ctx context.Context, windowStart, windowEnd time.Time) (*Report, error) {
	s.logger.Info("Starting pipeline run",
		logger.Time("window_start", windowStart),
		logger.Time("window_end", windowEnd),
		logger.String("run_dir", s.runDir.Path()),
	)

	collected, err := s.collector.Run(ctx, windowStart)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunDir:      s.runDir.Path(),
		Collected:   len(collected.Flights),
		FailedTicks: collected.FailedTicks,
	}

	if len(collected.Flights) == 0 {
		s.logger.Warn("No flights collected, nothing to process")
		return report, nil
	}

	designators := make(map[string]string, len(collected.Flights))
	for id, track := range collected.Flights {
		designators[id] = track.Designator
	}

	sumResult := s.fetcher.Fetch(ctx, designators, windowStart, windowEnd)
	report.FailedSummaryIDs = sumResult.FailedIDs

	if err := s.runDir.WriteSummaries(sumResult.Summaries); err != nil {
		s.logger.Error("Failed to write summaries artifact", logger.Error(err))
	}
	if len(sumResult.RawResponses) > 0 {
		if err := s.runDir.WriteRawSummaries(sumResult.RawResponses); err != nil {
			s.logger.Error("Failed to write raw summaries artifact", logger.Error(err))
		}
	}

	summaryMap := make(map[string]tracking.FlightSummary, len(sumResult.Summaries))
	for _, summary := range sumResult.Summaries {
		if summary.FlightID != "" {
			summaryMap[summary.FlightID] = summary
		}
	}

	failedIDs := make(map[string]bool, len(sumResult.FailedIDs))
	for _, id := range sumResult.FailedIDs {
		failedIDs[id] = true
	}

	// Deterministic processing order
	flightIDs := make([]string, 0, len(collected.Flights))
	for id := range collected.Flights {
		flightIDs = append(flightIDs, id)
	}
	sort.Strings(flightIDs)

	assembled := make(map[string]*trajectory.Track, len(collected.Flights))
	var processed []*ProcessedFlight

	for _, id := range flightIDs {
		if failedIDs[id] {
			continue
		}

		track := collected.Flights[id]
		points := trajectory.Assemble(track.Positions)
		assembled[id] = &trajectory.Track{Positions: points, Designator: track.Designator}

		if len(points) < s.minPoints {
			s.logger.Debug("Skipping flight below minimum data points",
				logger.String("flight_id", id),
				logger.Int("points", len(points)),
			)
			report.SkippedFlights++
			continue
		}

		record := s.processFlight(id, track.Designator, points, summaryMap[id])
		processed = append(processed, record)

		if err := s.runDir.WriteDetailedPath(id, points); err != nil {
			s.logger.Error("Failed to write detailed path artifact",
				logger.String("flight_id", id),
				logger.Error(err),
			)
		}

		if s.sink != nil {
			if err := s.sink.SaveProcessedFlight(ctx, record); err != nil {
				s.logger.Error("Failed to persist processed flight",
					logger.String("flight_id", id),
					logger.Error(err),
				)
			}
		}
	}

	if err := s.runDir.WriteDetailsMap(assembled); err != nil {
		s.logger.Error("Failed to write details map artifact", logger.Error(err))
	}
	if err := s.runDir.WriteProcessed(processed); err != nil {
		s.logger.Error("Failed to write processed flights artifact", logger.Error(err))
	}

	report.Processed = len(processed)

	s.logger.Info("Pipeline run finished",
		logger.Int("collected", report.Collected),
		logger.Int("processed", report.Processed),
		logger.Int("skipped", report.SkippedFlights),
		logger.Int("failed_ticks", len(report.FailedTicks)),
		logger.Int("failed_summary_ids", len(report.FailedSummaryIDs)),
	)

	return report, nil
}

// processFlight derives one processed record from an assembled trajectory
// and its (possibly absent) summary metadata
func (s *Service) processFlight(id, designator string, points []trajectory.Point, summary tracking.FlightSummary) *ProcessedFlight {
	durations := s.segmenter.Segment(points)
	distance := trajectory.Distance(points)

	model := summary.Type
	if model == "" {
		model = fuel.DefaultProfileKey
	}
	estimate := s.fuelTable.Estimate(durations, model)

	callsign := summary.Callsign
	if callsign == "" {
		callsign = designator
	}

	return &ProcessedFlight{
		FlightID:          id,
		Flight:            summary.Flight,
		Callsign:          callsign,
		AircraftModel:     model,
		AircraftReg:       summary.Registration,
		DepartureICAO:     summary.OrigICAO,
		ArrivalICAO:       summary.DestICAO,
		DepartureTimeUTC:  summary.DatetimeTakeoff,
		ArrivalTimeUTC:    summary.DatetimeLanded,
		FlightDurationS:   summary.FlightTimeSecs,
		DistanceKm:        distance,
		GreatCircleKm:     summary.CircleDistance,
		PhaseDurationsS:   durations,
		FuelEstimatedKg:   estimate.FuelKg,
		CO2EstimatedKg:    estimate.CO2Kg,
		CO2TotalKg:        estimate.CO2TotalKg,
		CO2PerPassengerKg: estimate.CO2PerPassengerKg,
		Points:            points,
	}
}
