package geo

import "math"

const (
	earthRadiusKm = 6371.0
	kmPerMile     = 1.60934

	// MaxDistanceMiles approximates half of Earth's circumference, the
	// largest possible great-circle distance between two points.
	MaxDistanceMiles = 12400.0
)

// Distance returns the great-circle distance between two points in miles,
// computed with the Haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c / kmPerMile
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
