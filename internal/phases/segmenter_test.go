package phases

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/listerineh/flight-emissions/internal/config"
	"github.com/listerineh/flight-emissions/internal/trajectory"
)

func testConfig() config.PhasesConfig {
	return config.PhasesConfig{
		VerticalRateThresholdFPM: 3,
		LowAltitudeFt:            500,
		TakeoffReassignEnabled:   true,
		TakeoffReassignCapSecs:   180,
	}
}

func point(ts int64, alt, spd, vr float64) trajectory.Point {
	return trajectory.Point{
		Timestamp:    ts,
		Altitude:     alt,
		GroundSpeed:  spd,
		VerticalRate: vr,
	}
}

func TestSegmentFullFlightProfile(t *testing.T) {
	s := NewSegmenter(testConfig())

	points := []trajectory.Point{
		point(0, 100, 120, 50),     // low, fast, climbing: takeoff
		point(60, 2000, 250, 20),   // climbing
		point(120, 10000, 450, 0),  // level: cruise
		point(180, 5000, 300, -20), // descending
		point(240, 300, 40, -5),    // low, slow, sinking: landing
		point(300, 0, 10, 0),       // terminal point, classifies nothing
	}

	d := s.Segment(points)
	assert.Equal(t, int64(60), d.Takeoff)
	assert.Equal(t, int64(60), d.Climb)
	assert.Equal(t, int64(60), d.Cruise)
	assert.Equal(t, int64(60), d.Descent)
	assert.Equal(t, int64(60), d.Landing)
	assert.Equal(t, int64(300), d.Total())
}

func TestSegmentSlowInitialClimbIsTakeoff(t *testing.T) {
	s := NewSegmenter(testConfig())

	points := []trajectory.Point{
		point(0, 100, 40, 5),
		point(60, 200, 45, 6),
	}

	d := s.Segment(points)
	assert.Equal(t, Durations{Takeoff: 60}, d)
}

func TestSegmentLevelFlightIsCruise(t *testing.T) {
	s := NewSegmenter(testConfig())

	points := []trajectory.Point{
		point(0, 35000, 500, 0),
		point(120, 35000, 500, 0),
	}

	d := s.Segment(points)
	assert.Equal(t, Durations{Cruise: 120}, d)
}

func TestSegmentDurationsSumToSpan(t *testing.T) {
	s := NewSegmenter(testConfig())

	points := []trajectory.Point{
		point(1000, 100, 140, 30),
		point(1045, 3000, 260, 15),
		point(1100, 8000, 400, 4),
		point(1333, 11000, 450, 1),
		point(1500, 11000, 440, -2),
		point(1807, 6000, 320, -12),
		point(2011, 400, 45, -3),
	}

	d := s.Segment(points)
	assert.Equal(t, int64(2011-1000), d.Total())
}

func TestSegmentTakeoffBeatsClimbAtLowAltitude(t *testing.T) {
	s := NewSegmenter(testConfig())

	// Low, fast and climbing satisfies both the takeoff and climb rules;
	// the takeoff rule wins.
	points := []trajectory.Point{
		point(0, 200, 150, 40),
		point(30, 1500, 250, 40),
	}

	d := s.Segment(points)
	assert.Equal(t, int64(30), d.Takeoff)
	assert.Equal(t, int64(0), d.Climb)
}

func TestSegmentLandingBeatsDescentAtLowAltitude(t *testing.T) {
	s := NewSegmenter(testConfig())

	points := []trajectory.Point{
		point(0, 400, 45, -8),
		point(45, 0, 20, 0),
	}

	d := s.Segment(points)
	assert.Equal(t, int64(45), d.Landing)
	assert.Equal(t, int64(0), d.Descent)
}

func TestSegmentFewerThanTwoPoints(t *testing.T) {
	s := NewSegmenter(testConfig())

	assert.Equal(t, Durations{}, s.Segment(nil))
	assert.Equal(t, Durations{}, s.Segment([]trajectory.Point{point(0, 100, 120, 50)}))
}

func TestSegmentReassignsInitialClimbToTakeoff(t *testing.T) {
	s := NewSegmenter(testConfig())

	// Slow climb from below the low altitude threshold: no interval matches
	// the takeoff rule, so up to the cap is reattributed from climb.
	points := []trajectory.Point{
		point(0, 400, 20, 10),
		point(300, 2000, 200, 10),
		point(600, 6000, 300, 10),
	}

	d := s.Segment(points)
	assert.Equal(t, int64(180), d.Takeoff)
	assert.Equal(t, int64(420), d.Climb)
	assert.Equal(t, int64(600), d.Total())
}

func TestSegmentReassignCappedByAvailableClimb(t *testing.T) {
	s := NewSegmenter(testConfig())

	points := []trajectory.Point{
		point(0, 400, 20, 10),
		point(100, 2000, 200, 0),
		point(200, 2000, 200, 0),
	}

	d := s.Segment(points)
	assert.Equal(t, int64(100), d.Takeoff)
	assert.Equal(t, int64(0), d.Climb)
	assert.Equal(t, int64(100), d.Cruise)
}

func TestSegmentNoReassignWhenStartingHigh(t *testing.T) {
	s := NewSegmenter(testConfig())

	// A trajectory first seen at altitude was already airborne
	points := []trajectory.Point{
		point(0, 8000, 400, 10),
		point(300, 11000, 450, 10),
	}

	d := s.Segment(points)
	assert.Equal(t, int64(0), d.Takeoff)
	assert.Equal(t, int64(300), d.Climb)
}

func TestSegmentReassignDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.TakeoffReassignEnabled = false
	s := NewSegmenter(cfg)

	points := []trajectory.Point{
		point(0, 400, 20, 10),
		point(300, 2000, 200, 10),
	}

	d := s.Segment(points)
	assert.Equal(t, int64(0), d.Takeoff)
	assert.Equal(t, int64(300), d.Climb)
}

func TestDurationsByName(t *testing.T) {
	d := Durations{Takeoff: 1, Climb: 2, Cruise: 3, Descent: 4, Landing: 5}

	assert.Equal(t, int64(1), d.ByName(PhaseTakeoff))
	assert.Equal(t, int64(2), d.ByName(PhaseClimb))
	assert.Equal(t, int64(3), d.ByName(PhaseCruise))
	assert.Equal(t, int64(4), d.ByName(PhaseDescent))
	assert.Equal(t, int64(5), d.ByName(PhaseLanding))
	assert.Equal(t, int64(0), d.ByName("taxi"))
	assert.Equal(t, int64(15), d.Total())
}
