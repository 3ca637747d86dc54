package tracking

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlexibleTime holds a provider timestamp that may arrive either as an
// ISO-8601 string (with any offset) or as an integer epoch value.
type FlexibleTime struct {
	value any
}

// UnmarshalJSON implements custom JSON unmarshaling for FlexibleTime
func (t *FlexibleTime) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		t.value = num
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		t.value = str
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleTime", data)
}

// Epoch returns the timestamp as UTC epoch seconds. The second return value
// is false when the raw value was absent or unparseable.
func (t *FlexibleTime) Epoch() (int64, bool) {
	switch v := t.value.(type) {
	case float64:
		return int64(v), true
	case string:
		if v == "" {
			return 0, false
		}
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return 0, false
		}
		return parsed.Unix(), true
	default:
		return 0, false
	}
}

// RawPosition represents a single aircraft position in a provider snapshot
type RawPosition struct {
	FlightID     string       `json:"fr24_id"`
	Callsign     string       `json:"callsign"`
	Flight       string       `json:"flight"`
	Lat          *float64     `json:"lat"`
	Lon          *float64     `json:"lon"`
	Alt          float64      `json:"alt"`
	GroundSpeed  float64      `json:"gspeed"`
	VerticalRate float64      `json:"vspeed"`
	Timestamp    FlexibleTime `json:"timestamp"`
}

// Designator returns the callsign-or-flight-number join key for this
// position, preferring the callsign, or "" when neither is present.
func (p *RawPosition) Designator() string {
	if p.Callsign != "" {
		return p.Callsign
	}
	return p.Flight
}

// PositionsSnapshot is one point-in-time batch of aircraft positions
type PositionsSnapshot struct {
	Positions []RawPosition // Parsed position list
	Raw       []byte        // Verbatim provider response body for audit
}

// positionsEnvelope covers both response shapes the provider has used: the
// historic endpoint returns {"positions": [...]}, older ones {"data": [...]}.
type positionsEnvelope struct {
	Positions []RawPosition `json:"positions"`
	Data      []RawPosition `json:"data"`
}

// FlightSummary represents provider-reported metadata for one flight
type FlightSummary struct {
	FlightID        string   `json:"fr24_id"`
	Flight          string   `json:"flight"`
	Callsign        string   `json:"callsign"`
	Type            string   `json:"type"`
	Registration    string   `json:"reg"`
	OrigICAO        string   `json:"orig_icao"`
	DestICAO        string   `json:"dest_icao"`
	DatetimeTakeoff string   `json:"datetime_takeoff"`
	DatetimeLanded  string   `json:"datetime_landed"`
	FirstSeen       string   `json:"first_seen"`
	LastSeen        string   `json:"last_seen"`
	FlightTimeSecs  *int64   `json:"flight_time"`
	CircleDistance  *float64 `json:"circle_distance"`
}

// SummaryPage is one provider response to a batched summary query
type SummaryPage struct {
	Summaries []FlightSummary // Parsed summary list
	Raw       json.RawMessage // Verbatim provider response body for audit
}

// summaryEnvelope covers both shapes: {"data": [...]} or a bare array
type summaryEnvelope struct {
	Data []FlightSummary `json:"data"`
}
