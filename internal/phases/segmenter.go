// Package phases classifies assembled trajectories into flight phase
// durations. The classifier is a threshold heuristic over instantaneous
// altitude, ground speed and vertical rate, not a flight-dynamics model.
package phases

import (
	"github.com/listerineh/flight-emissions/internal/config"
	"github.com/listerineh/flight-emissions/internal/trajectory"
)

// Phase names, also used as JSON keys in persisted artifacts
const (
	PhaseTakeoff = "takeoff"
	PhaseClimb   = "climb"
	PhaseCruise  = "cruise"
	PhaseDescent = "descent"
	PhaseLanding = "landing"
)

// Names lists all phases in their canonical order
var Names = []string{PhaseTakeoff, PhaseClimb, PhaseCruise, PhaseDescent, PhaseLanding}

// Durations holds the accumulated seconds attributed to each flight phase
type Durations struct {
	Takeoff int64 `json:"takeoff"`
	Climb   int64 `json:"climb"`
	Cruise  int64 `json:"cruise"`
	Descent int64 `json:"descent"`
	Landing int64 `json:"landing"`
}

// Total returns the sum of all phase durations in seconds
func (d Durations) Total() int64 {
	return d.Takeoff + d.Climb + d.Cruise + d.Descent + d.Landing
}

// ByName returns the duration for the given phase name
func (d Durations) ByName(name string) int64 {
	switch name {
	case PhaseTakeoff:
		return d.Takeoff
	case PhaseClimb:
		return d.Climb
	case PhaseCruise:
		return d.Cruise
	case PhaseDescent:
		return d.Descent
	case PhaseLanding:
		return d.Landing
	default:
		return 0
	}
}

// Segmenter classifies sorted point sequences into phase durations
type Segmenter struct {
	vrThreshold float64
	lowAltitude float64

	reassignTakeoff bool
	reassignCapSecs int64
}

// NewSegmenter creates a segmenter with the configured thresholds
func NewSegmenter(cfg config.PhasesConfig) *Segmenter {
	return &Segmenter{
		vrThreshold:     cfg.VerticalRateThresholdFPM,
		lowAltitude:     cfg.LowAltitudeFt,
		reassignTakeoff: cfg.TakeoffReassignEnabled,
		reassignCapSecs: cfg.TakeoffReassignCapSecs,
	}
}

// Segment attributes each inter-point interval to exactly one phase, so the
// durations always sum to the total span of the trajectory. A trajectory
// with fewer than two points yields all-zero durations.
//
// Each interval is classified from the earlier point's instantaneous values.
// The takeoff and landing rules are evaluated before the generic vertical
// rate rules: a low, slow, climbing aircraft is taking off, not climbing.
func (s *Segmenter) Segment(points []trajectory.Point) Durations {
	var durations Durations
	if len(points) < 2 {
		return durations
	}

	for i := 0; i < len(points)-1; i++ {
		p0, p1 := points[i], points[i+1]
		dt := p1.Timestamp - p0.Timestamp

		alt := p0.Altitude
		spd := p0.GroundSpeed
		vr := p0.VerticalRate

		switch {
		case alt < s.lowAltitude && spd > 30 && vr > 1:
			durations.Takeoff += dt
		case alt < s.lowAltitude && spd < 50 && vr < 1:
			durations.Landing += dt
		case vr > s.vrThreshold:
			durations.Climb += dt
		case vr < -s.vrThreshold:
			durations.Descent += dt
		default:
			durations.Cruise += dt
		}
	}

	if s.reassignTakeoff {
		durations = s.reassignInitialClimb(points, durations)
	}

	return durations
}

// reassignInitialClimb compensates for sampling granularity that can miss the
// brief takeoff window entirely: when no takeoff interval was found but the
// flight starts low and climbs, up to the configured cap of climb time is
// reattributed to takeoff. The cap is an empirical tuning value.
func (s *Segmenter) reassignInitialClimb(points []trajectory.Point, durations Durations) Durations {
	if durations.Takeoff != 0 || durations.Climb == 0 {
		return durations
	}
	if points[0].Altitude >= s.lowAltitude {
		return durations
	}

	reassigned := s.reassignCapSecs
	if durations.Climb < reassigned {
		reassigned = durations.Climb
	}
	durations.Takeoff = reassigned
	durations.Climb -= reassigned

	return durations
}
