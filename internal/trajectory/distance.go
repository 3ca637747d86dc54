package trajectory

import (
	"math"
)

const earthRadiusKm = 6371.0

// Distance sums the great-circle distance in kilometers between consecutive
// points, skipping points with a missing coordinate. Fewer than two valid
// coordinate pairs yields zero. The result is rounded to two decimals.
func Distance(points []Point) float64 {
	type coord struct{ lat, lon float64 }

	coords := make([]coord, 0, len(points))
	for _, p := range points {
		if p.Latitude == nil || p.Longitude == nil {
			continue
		}
		coords = append(coords, coord{lat: *p.Latitude, lon: *p.Longitude})
	}

	if len(coords) < 2 {
		return 0
	}

	var total float64
	for i := 0; i < len(coords)-1; i++ {
		total += Haversine(coords[i].lat, coords[i].lon, coords[i+1].lat, coords[i+1].lon)
	}

	return math.Round(total*100) / 100
}

// Haversine returns the great-circle distance in kilometers between two
// coordinates
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
