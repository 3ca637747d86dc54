// Package collector polls the provider's positional snapshot endpoint over a
// bounded time window and accumulates raw trajectory fragments per flight.
package collector

import (
	"context"
	"sort"
	"time"

	"github.com/listerineh/flight-emissions/internal/config"
	"github.com/listerineh/flight-emissions/internal/retry"
	"github.com/listerineh/flight-emissions/internal/tracking"
	"github.com/listerineh/flight-emissions/internal/trajectory"
	"github.com/listerineh/flight-emissions/pkg/logger"
)

// PositionsClient is the slice of the tracking client the collector needs
type PositionsClient interface {
	Positions(ctx context.Context, bounds string, ts int64) (*tracking.PositionsSnapshot, error)
}

// SnapshotWriter persists raw per-tick snapshots for audit
type SnapshotWriter interface {
	WriteSnapshot(ts time.Time, raw []byte) error
}

// Result is the outcome of one collection window
type Result struct {
	Flights     map[string]*trajectory.Track // Keyed by provider flight id
	FailedTicks []int64                      // Tick timestamps whose data was permanently lost
	Ticks       int                          // Total ticks attempted
}

// Collector issues one positional snapshot request per interval tick
type Collector struct {
	client PositionsClient
	writer SnapshotWriter
	cfg    config.CollectorConfig
	policy retry.Policy
	logger *logger.Logger
}

// New creates a new snapshot collector
func New(client PositionsClient, writer SnapshotWriter, cfg config.CollectorConfig, loggerObj *logger.Logger) *Collector {
	rateLimitSleep := time.Duration(cfg.RateLimitSleepSeconds) * time.Second
	otherSleep := time.Duration(cfg.BadRequestSleepSecs) * time.Second

	return &Collector{
		client: client,
		writer: writer,
		cfg:    cfg,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			// Even 400s are retried here: for historic snapshots the usual
			// cause is data not yet available for the timestamp, which can
			// resolve between attempts.
			Retryable: func(error) bool { return true },
			Backoff: func(err error, _ int) time.Duration {
				if tracking.IsRateLimited(err) {
					return rateLimitSleep
				}
				return otherSleep
			},
		},
		logger: loggerObj.Named("collector"),
	}
}

// Run collects snapshots at fixed intervals starting at windowStart. A tick
// whose attempts are exhausted is recorded as failed and the run continues;
// only context cancellation stops the window early. Flights that never
// resolved a callsign-or-flight-number are dropped from the result since
// they cannot be joined to summary metadata.
func (c *Collector) Run(ctx context.Context, windowStart time.Time) (*Result, error) {
	interval := time.Duration(c.cfg.IntervalMinutes) * time.Minute
	iterations := int((time.Duration(c.cfg.WindowHours) * time.Hour) / interval)
	pacing := time.Duration(c.cfg.PacingSeconds) * time.Second

	c.logger.Info("Starting snapshot collection",
		logger.Time("window_start", windowStart),
		logger.Duration("interval", interval),
		logger.Int("ticks", iterations),
		logger.String("bounds", c.cfg.Bounds),
	)

	result := &Result{
		Flights: make(map[string]*trajectory.Track),
		Ticks:   iterations,
	}

	for i := 0; i < iterations; i++ {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		ts := windowStart.Add(time.Duration(i) * interval).Unix()

		var snapshot *tracking.PositionsSnapshot
		err := c.policy.Do(ctx, func() error {
			var fetchErr error
			snapshot, fetchErr = c.client.Positions(ctx, c.cfg.Bounds, ts)
			if fetchErr != nil {
				c.logger.Warn("Snapshot request failed, may retry",
					logger.Int64("timestamp", ts),
					logger.Error(fetchErr),
				)
			}
			return fetchErr
		})
		if err != nil {
			c.logger.Error("All attempts for snapshot tick failed",
				logger.Int64("timestamp", ts),
				logger.Error(err),
			)
			result.FailedTicks = append(result.FailedTicks, ts)
			continue
		}

		c.ingestSnapshot(snapshot, ts, result)

		if i < iterations-1 && pacing > 0 {
			select {
			case <-time.After(pacing):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}

	c.dropUnjoinableFlights(result)

	for _, track := range result.Flights {
		sort.Slice(track.Positions, func(i, j int) bool {
			return track.Positions[i].Timestamp < track.Positions[j].Timestamp
		})
	}

	c.logger.Info("Snapshot collection finished",
		logger.Int("flights", len(result.Flights)),
		logger.Int("failed_ticks", len(result.FailedTicks)),
	)

	return result, nil
}

// ingestSnapshot merges one snapshot's positions into the accumulating
// per-flight tracks and persists the raw payload when it held any flights
func (c *Collector) ingestSnapshot(snapshot *tracking.PositionsSnapshot, ts int64, result *Result) {
	if len(snapshot.Positions) == 0 {
		c.logger.Debug("Empty snapshot, not persisting", logger.Int64("timestamp", ts))
		return
	}

	if c.writer != nil {
		if err := c.writer.WriteSnapshot(time.Unix(ts, 0).UTC(), snapshot.Raw); err != nil {
			// Audit persistence is best-effort; collection continues
			c.logger.Error("Failed to persist raw snapshot",
				logger.Int64("timestamp", ts),
				logger.Error(err),
			)
		}
	}

	seen := 0
	for _, raw := range snapshot.Positions {
		if raw.FlightID == "" {
			continue
		}
		seen++

		track, ok := result.Flights[raw.FlightID]
		if !ok {
			track = &trajectory.Track{}
			result.Flights[raw.FlightID] = track
		}

		// First non-empty designator observed wins
		if track.Designator == "" {
			track.Designator = raw.Designator()
		}

		if point, ok := trajectory.PointFromRaw(raw); ok && raw.Lat != nil && raw.Lon != nil {
			track.Positions = append(track.Positions, point)
		}
	}

	c.logger.Info("Snapshot ingested",
		logger.Int64("timestamp", ts),
		logger.Int("flight_count", seen),
	)
}

// dropUnjoinableFlights removes flights that never resolved a designator
func (c *Collector) dropUnjoinableFlights(result *Result) {
	dropped := 0
	for id, track := range result.Flights {
		if track.Designator == "" {
			delete(result.Flights, id)
			dropped++
		}
	}
	if dropped > 0 {
		c.logger.Info("Dropped flights without callsign or flight number",
			logger.Int("count", dropped),
		)
	}
}
