package geo

import "math"

const earthRadiusMeters = 6371008.8

// DistanceBetween returns the great-circle distance between two coordinates
// in meters (haversine).
func DistanceBetween(from, to Coordinate) float64 {
	lat1 := from.Latitude * math.Pi / 180
	lat2 := to.Latitude * math.Pi / 180
	dLat := (to.Latitude - from.Latitude) * math.Pi / 180
	dLon := (to.Longitude - from.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// IsWithinRadius reports whether to is within radiusMeters of from
func IsWithinRadius(from, to Coordinate, radiusMeters float64) bool {
	return DistanceBetween(from, to) <= radiusMeters
}
