package geomath

import (
	"math"

	"github.com/didier-building/agaciro-drivers-mvp/internal/models"
)

const earthRadiusKm = 6371.0

// DistanceKm is the great-circle distance between two points, haversine form.
func DistanceKm(a, b models.Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	la1 := a.Lat * math.Pi / 180
	la2 := b.Lat * math.Pi / 180
	x := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(la1)*math.Cos(la2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(x), math.Sqrt(1-x))
}

// StepToward moves current by step degrees along the straight line to target
// in the (lng, lat) plane, treated as Cartesian for the small steps the
// simulation takes. When target is within step it is returned exactly with
// arrived=true, so repeated calls converge in at most
// ceil(initialDistance/step) steps and never oscillate.
func StepToward(current, target models.Coordinate, step float64) (models.Coordinate, bool) {
	dx := target.Lng - current.Lng
	dy := target.Lat - current.Lat
	dist := math.Hypot(dx, dy)
	if dist < step {
		return target, true
	}
	return models.Coordinate{
		Lat: current.Lat + dy/dist*step,
		Lng: current.Lng + dx/dist*step,
	}, false
}

// RoundKm rounds to one decimal, matching how distances are quoted and shown.
func RoundKm(km float64) float64 {
	return math.Round(km*10) / 10
}
