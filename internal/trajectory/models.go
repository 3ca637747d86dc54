package trajectory

import (
	"github.com/listerineh/flight-emissions/internal/tracking"
)

// Point represents one normalized position sample within a flight trajectory.
// Timestamps are UTC epoch seconds; latitude/longitude are nil when the
// provider omitted them, and such points are ignored by distance computation.
type Point struct {
	Timestamp    int64    `json:"timestamp"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Altitude     float64  `json:"altitude"`
	GroundSpeed  float64  `json:"ground_speed"`
	VerticalRate float64  `json:"vertical_rate"`
}

// Track is the assembled trajectory for one flight plus its resolved
// callsign-or-flight-number join key. This is the logical shape persisted
// between pipeline stages.
type Track struct {
	Positions  []Point `json:"positions"`
	Designator string  `json:"callsign_or_flight"`
}

// PointFromRaw converts a raw provider position into a normalized Point.
// It returns false when the timestamp is absent or malformed; such points
// are dropped without failing the whole flight.
func PointFromRaw(raw tracking.RawPosition) (Point, bool) {
	ts, ok := raw.Timestamp.Epoch()
	if !ok {
		return Point{}, false
	}

	return Point{
		Timestamp:    ts,
		Latitude:     raw.Lat,
		Longitude:    raw.Lon,
		Altitude:     raw.Alt,
		GroundSpeed:  raw.GroundSpeed,
		VerticalRate: raw.VerticalRate,
	}, true
}
