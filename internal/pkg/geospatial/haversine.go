package geospatial

import "math"

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// BoxSize returns the ground width and height in meters of a lat/lon box,
// measured along its middle parallel and meridian.
func BoxSize(minLat, minLon, maxLat, maxLon float64) (width, height float64) {
	midLat := (minLat + maxLat) / 2
	midLon := (minLon + maxLon) / 2
	return Haversine(midLat, minLon, midLat, maxLon), Haversine(minLat, midLon, maxLat, midLon)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
