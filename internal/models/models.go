package models

import "time"

// Coordinate is a point in floating-point degrees. Value type; movement
// produces a new Coordinate rather than mutating in place.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is a named point of interest from the static catalog.
type Place struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

func (p Place) Coordinate() Coordinate { return Coordinate{Lat: p.Lat, Lng: p.Lng} }

// Vehicle is static reference data, many-to-one with Driver via VehicleID.
type Vehicle struct {
	ID    string `json:"id"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Plate string `json:"plate"`
	Color string `json:"color"`
	Seats int    `json:"seats"`
}

type Driver struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Phone     string       `json:"phone"`
	Rating    float64      `json:"rating"` // 0..5, static in this design
	VehicleID string       `json:"vehicle_id"`
	Status    DriverStatus `json:"status"`
	Position  Coordinate   `json:"position"`
}

type Payment struct {
	Method string `json:"method"` // cash, momo, card
	Status string `json:"status"` // stays unpaid; settlement happens outside the core
	// AuthRef holds a card pre-authorization reference when one was
	// recorded at request time. Metadata only, never captured here.
	AuthRef string `json:"auth_ref,omitempty"`
}

const PaymentUnpaid = "unpaid"

// FareBreakdown itemizes a quote the way the rider sees it.
type FareBreakdown struct {
	Base       int64   `json:"base"`
	PerKm      int64   `json:"per_km"`
	DistanceKm float64 `json:"distance_km"`
	NightPct   float64 `json:"night_pct"`
}

// Timeline records when each lifecycle transition happened. Pointers stay
// nil until the corresponding transition fires.
type Timeline struct {
	RequestedAt time.Time  `json:"requested_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	ArrivedAt   *time.Time `json:"arrived_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Ride struct {
	ID         string        `json:"id"`
	RiderPhone string        `json:"rider_phone"`
	Pickup     Coordinate    `json:"pickup"`
	Dropoff    Coordinate    `json:"dropoff"`
	DistanceKm float64       `json:"distance_km"`
	Price      int64         `json:"price"`
	Status     RideStatus    `json:"status"`
	DriverID   string        `json:"driver_id,omitempty"` // empty until pre-selected or assigned
	Payment    Payment       `json:"payment"`
	Surge      float64       `json:"surge"`
	Breakdown  FareBreakdown `json:"breakdown"`
	Timeline   Timeline      `json:"timeline"`
}

// Offer is the ephemeral "driver has been notified, not yet responded"
// fact. Owned by the dispatch broker, discarded on accept or reject.
type Offer struct {
	RideID     string     `json:"ride_id"`
	DriverID   string     `json:"driver_id"`
	Pickup     Coordinate `json:"pickup"`
	Dropoff    Coordinate `json:"dropoff"`
	DistanceKm float64    `json:"distance_km"`
	Price      int64      `json:"price"`
	EtaSeconds float64    `json:"eta_seconds"` // straight-line estimate to pickup
	CreatedAt  time.Time  `json:"created_at"`
}
