package geo

import (
	"math"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
)

const earthRadiusMeters = 6371000

func toRadians(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}

// CalculateDistance returns the great-circle distance between two coordinates in meters.
func CalculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)

	// Haversine
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)

	// rounding can push a a hair past 1 for antipodal points
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// IsWithin reports geofence membership.
func IsWithin(distanceMeters, radiusMeters float64) bool {
	return distanceMeters <= radiusMeters
}

// NearestOffice returns the office closest to (lat, lon) and its distance.
// ok is false when offices is empty.
func NearestOffice(lat, lon float64, offices []attendance.Office) (office attendance.Office, distance float64, ok bool) {
	distance = math.Inf(1)
	for _, o := range offices {
		d := CalculateDistance(lat, lon, o.Latitude, o.Longitude)
		if d < distance {
			office, distance, ok = o, d, true
		}
	}
	if !ok {
		return attendance.Office{}, 0, false
	}
	return office, distance, true
}
