package service

import "math"

const earthRadiusM = 6371000.0

// HaversineMeters menghitung jarak great-circle dua koordinat dalam meter.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLng := deg2rad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

func deg2rad(d float64) float64 {
	return d * math.Pi / 180
}
