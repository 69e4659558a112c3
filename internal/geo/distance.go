// Package geo provides great-circle distance math for match scoring.
package geo

import "math"

// EarthRadiusMiles is the mean Earth radius used by the haversine formula.
const EarthRadiusMiles = 3958.8

// Distance returns the haversine great-circle distance in miles between two
// latitude/longitude pairs given in signed decimal degrees. NaN inputs
// propagate to the result; callers guard with ValidCoords first.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

// ValidCoords reports whether both values are finite numbers usable as a
// coordinate pair.
func ValidCoords(lat, lng float64) bool {
	return isFinite(lat) && isFinite(lng)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
