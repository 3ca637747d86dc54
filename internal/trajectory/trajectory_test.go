package trajectory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listerineh/flight-emissions/internal/tracking"
)

func ptr(v float64) *float64 { return &v }

func TestAssembleSortsByTimestamp(t *testing.T) {
	points := []Point{
		{Timestamp: 30, Altitude: 3000},
		{Timestamp: 10, Altitude: 1000},
		{Timestamp: 20, Altitude: 2000},
	}

	assembled := Assemble(points)
	require.Len(t, assembled, 3)
	assert.Equal(t, int64(10), assembled[0].Timestamp)
	assert.Equal(t, int64(20), assembled[1].Timestamp)
	assert.Equal(t, int64(30), assembled[2].Timestamp)
}

func TestAssembleDeduplicatesLastSeenWins(t *testing.T) {
	points := []Point{
		{Timestamp: 10, Altitude: 1000},
		{Timestamp: 20, Altitude: 2000},
		{Timestamp: 10, Altitude: 1500},
	}

	assembled := Assemble(points)
	require.Len(t, assembled, 2)
	assert.Equal(t, int64(10), assembled[0].Timestamp)
	assert.Equal(t, 1500.0, assembled[0].Altitude)
}

func TestAssembleIdempotent(t *testing.T) {
	points := []Point{
		{Timestamp: 30},
		{Timestamp: 10},
		{Timestamp: 10},
		{Timestamp: 20},
	}

	once := Assemble(points)
	twice := Assemble(once)
	assert.Equal(t, once, twice)
}

func TestAssembleEmpty(t *testing.T) {
	assert.Nil(t, Assemble(nil))
	assert.Nil(t, Assemble([]Point{}))
}

func TestDistanceOneDegreeAtEquator(t *testing.T) {
	points := []Point{
		{Timestamp: 0, Latitude: ptr(0), Longitude: ptr(0)},
		{Timestamp: 60, Latitude: ptr(0), Longitude: ptr(1)},
	}

	// One degree of longitude at the equator is ~111.19 km
	assert.InDelta(t, 111.19, Distance(points), 0.01)
}

func TestDistanceSkipsMissingCoordinates(t *testing.T) {
	points := []Point{
		{Timestamp: 0, Latitude: ptr(0), Longitude: ptr(0)},
		{Timestamp: 30, Latitude: nil, Longitude: ptr(0.5)},
		{Timestamp: 60, Latitude: ptr(0), Longitude: ptr(1)},
	}

	// The middle point has no latitude so the distance is a single segment
	assert.InDelta(t, 111.19, Distance(points), 0.01)
}

func TestDistanceFewerThanTwoValidPoints(t *testing.T) {
	assert.Equal(t, 0.0, Distance(nil))
	assert.Equal(t, 0.0, Distance([]Point{{Timestamp: 0, Latitude: ptr(1), Longitude: ptr(1)}}))
	assert.Equal(t, 0.0, Distance([]Point{
		{Timestamp: 0, Latitude: ptr(1), Longitude: nil},
		{Timestamp: 60, Latitude: nil, Longitude: ptr(1)},
	}))
}

func TestDistanceZeroForIdenticalPoints(t *testing.T) {
	points := []Point{
		{Timestamp: 0, Latitude: ptr(43.68), Longitude: ptr(-79.63)},
		{Timestamp: 60, Latitude: ptr(43.68), Longitude: ptr(-79.63)},
	}
	assert.Equal(t, 0.0, Distance(points))
}

func TestPointFromRawEpochTimestamp(t *testing.T) {
	var raw tracking.RawPosition
	require.NoError(t, json.Unmarshal([]byte(`{
		"fr24_id": "abc123",
		"callsign": "AAL100",
		"lat": 43.68,
		"lon": -79.63,
		"alt": 12000,
		"gspeed": 410,
		"vspeed": -600,
		"timestamp": 1700000000
	}`), &raw))

	point, ok := PointFromRaw(raw)
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), point.Timestamp)
	assert.Equal(t, 43.68, *point.Latitude)
	assert.Equal(t, -79.63, *point.Longitude)
	assert.Equal(t, 12000.0, point.Altitude)
	assert.Equal(t, 410.0, point.GroundSpeed)
	assert.Equal(t, -600.0, point.VerticalRate)
}

func TestPointFromRawStringTimestamp(t *testing.T) {
	var raw tracking.RawPosition
	require.NoError(t, json.Unmarshal([]byte(`{
		"fr24_id": "abc123",
		"timestamp": "2023-11-14T22:13:20Z"
	}`), &raw))

	point, ok := PointFromRaw(raw)
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), point.Timestamp)
}

func TestPointFromRawMissingTimestamp(t *testing.T) {
	var raw tracking.RawPosition
	require.NoError(t, json.Unmarshal([]byte(`{"fr24_id": "abc123"}`), &raw))

	_, ok := PointFromRaw(raw)
	assert.False(t, ok)
}
