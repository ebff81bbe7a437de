package pricing

import (
	"math"
	"time"

	"github.com/didier-building/agaciro-drivers-mvp/internal/models"
)

// Tariff constants in RWF. Integers on purpose; the currency has no minor
// unit in practice and totals are rounded once at the end.
const (
	Base  int64 = 1500
	PerKm int64 = 800

	nightPct      = 0.3
	surgeOverKm   = 8.0
	surgeFactor   = 1.1
	nightFromHour = 18
	nightToHour   = 5
)

// Fare is the result of a quote.
type Fare struct {
	Total     int64                `json:"total"`
	Surge     float64              `json:"surge"`
	Breakdown models.FareBreakdown `json:"breakdown"`
}

// Quoter is the pluggable pricing function signature the broker depends on.
type Quoter func(distanceKm float64, at time.Time) Fare

// Quote prices a ride from distance and time of day. Pure; distanceKm must
// be >= 0 (caller contract). Rounding is applied exactly once, after the
// night and surge multipliers.
func Quote(distanceKm float64, at time.Time) Fare {
	night := 0.0
	if h := at.Hour(); h >= nightFromHour || h < nightToHour {
		night = nightPct
	}
	surge := 1.0
	if distanceKm > surgeOverKm {
		surge = surgeFactor
	}
	raw := float64(Base) + float64(PerKm)*distanceKm
	total := int64(math.Round(raw * (1 + night) * surge))
	return Fare{
		Total: total,
		Surge: surge,
		Breakdown: models.FareBreakdown{
			Base:       Base,
			PerKm:      PerKm,
			DistanceKm: math.Round(distanceKm*10) / 10,
			NightPct:   night,
		},
	}
}
