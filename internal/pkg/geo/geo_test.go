package geo

import (
	"testing"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
)

func TestCalculateDistance_SamePointIsZero(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{12.9716, 77.5946},
		{-6.2088, 106.8456},
		{89.9, -179.9},
	}
	for _, p := range points {
		assert.Equal(t, 0.0, CalculateDistance(p[0], p[1], p[0], p[1]))
	}
}

func TestCalculateDistance_Symmetric(t *testing.T) {
	pairs := [][4]float64{
		{12.9716, 77.5946, 13.0827, 80.2707},
		{-6.2088, 106.8456, -7.2575, 112.7521},
		{51.5074, -0.1278, 40.7128, -74.0060},
		{0, 0, 0, 180},
	}
	for _, p := range pairs {
		ab := CalculateDistance(p[0], p[1], p[2], p[3])
		ba := CalculateDistance(p[2], p[3], p[0], p[1])
		assert.InDelta(t, ab, ba, 1e-6)
	}
}

func TestCalculateDistance_KnownDistance(t *testing.T) {
	// Bengaluru -> Chennai is roughly 290 km.
	d := CalculateDistance(12.9716, 77.5946, 13.0827, 80.2707)
	assert.InDelta(t, 290000, d, 5000)

	// One degree of latitude is about 111.2 km.
	assert.InDelta(t, 111195, CalculateDistance(0, 0, 1, 0), 10)
}

func TestIsWithin(t *testing.T) {
	assert.True(t, IsWithin(99.9, 100))
	assert.True(t, IsWithin(100, 100))
	assert.False(t, IsWithin(100.1, 100))
}

func TestNearestOffice(t *testing.T) {
	offices := []attendance.Office{
		{Name: "Chennai", Latitude: 13.0827, Longitude: 80.2707, RadiusMeters: 200},
		{Name: "Bengaluru", Latitude: 12.9716, Longitude: 77.5946, RadiusMeters: 200},
	}

	office, distance, ok := NearestOffice(12.9720, 77.5950, offices)
	assert.True(t, ok)
	assert.Equal(t, "Bengaluru", office.Name)
	assert.Less(t, distance, 100.0)

	_, _, ok = NearestOffice(12.9720, 77.5950, nil)
	assert.False(t, ok)
}
