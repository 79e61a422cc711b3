package geo

import (
	"math"

	"proxo/models"
)

// EarthRadiusMiles is the mean Earth radius used for great-circle distances.
const EarthRadiusMiles = 3959.0

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceMiles returns the haversine great-circle distance between two points,
// rounded to one decimal place (halves round away from zero).
func DistanceMiles(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	a := sinLat*sinLat + math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*sinLng*sinLng
	// Rounding can push a a hair outside [0, 1] near antipodal points.
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return math.Round(EarthRadiusMiles*c*10) / 10
}

// Distance is DistanceMiles for coordinate pairs.
func Distance(from, to models.Coordinates) float64 {
	return DistanceMiles(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
}
