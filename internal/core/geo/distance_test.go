package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceZeroForSamePoint(t *testing.T) {
	assert.Equal(t, 0.0, Distance(40.7128, -74.0060, 40.7128, -74.0060))
}

func TestDistanceIsSymmetric(t *testing.T) {
	d1 := Distance(51.5074, -0.1278, 48.8566, 2.3522)
	d2 := Distance(48.8566, 2.3522, 51.5074, -0.1278)
	assert.InDelta(t, d1, d2, 1e-9)
}

func TestDistanceKnownValue(t *testing.T) {
	// London to Paris is roughly 213 miles great-circle.
	d := Distance(51.5074, -0.1278, 48.8566, 2.3522)
	assert.InDelta(t, 213, d, 3)
}

func TestDistanceAntipodalNearMax(t *testing.T) {
	// MaxDistanceMiles is a rounded-down approximation of the true
	// antipodal distance, so the real value may land slightly above it.
	d := Distance(90, 0, -90, 0)
	assert.InDelta(t, math.Pi*earthRadiusKm/kmPerMile, d, 1e-6)
	assert.InDelta(t, MaxDistanceMiles, d, MaxDistanceMiles*0.01)
}
