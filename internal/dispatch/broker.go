package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/didier-building/agaciro-drivers-mvp/internal/fleet"
	"github.com/didier-building/agaciro-drivers-mvp/internal/geomath"
	"github.com/didier-building/agaciro-drivers-mvp/internal/models"
	"github.com/didier-building/agaciro-drivers-mvp/internal/observability"
	"github.com/didier-building/agaciro-drivers-mvp/internal/pricing"
	"github.com/didier-building/agaciro-drivers-mvp/internal/rides"
)

// Authorizer records a card pre-authorization hold and returns its
// reference. The reference lands in ride payment metadata; nothing is ever
// captured by this service.
type Authorizer interface {
	Authorize(ctx context.Context, amount int64, currency string) (string, error)
}

// RideRequest is the input to RequestRide.
type RideRequest struct {
	Pickup            models.Coordinate `json:"pickup"`
	Dropoff           models.Coordinate `json:"dropoff"`
	RiderPhone        string            `json:"rider_phone"`
	PaymentMethod     string            `json:"payment_method"`
	PreferredDriverID string            `json:"preferred_driver_id,omitempty"`
}

// Quote is a pre-booking estimate; no ride is created.
type Quote struct {
	DistanceKm float64              `json:"distance_km"`
	Total      int64                `json:"total"`
	Surge      float64              `json:"surge"`
	Breakdown  models.FareBreakdown `json:"breakdown"`
}

// Broker matches new rides to drivers and resolves the accept race. It owns
// the offer set; ride and driver state it mutates only through the store
// and the registry. Accept and force-assign run under one mutex so the
// offer check, the sibling withdrawal and the ride/driver commit are a
// single transaction: exactly one driver wins a contested ride.
type Broker struct {
	rides    *rides.Store
	fleet    *fleet.Registry
	quote    pricing.Quoter
	notifier Notifier
	auth     Authorizer // nil when card holds are not configured
	logger   *slog.Logger

	// speed used for the straight-line pickup ETA shown on offers, m/s.
	etaSpeedMps float64

	mu     sync.Mutex
	offers map[string]map[string]models.Offer // rideID -> driverID -> offer
}

func NewBroker(store *rides.Store, reg *fleet.Registry, quote pricing.Quoter, notifier Notifier, auth Authorizer, logger *slog.Logger) *Broker {
	return &Broker{
		rides:       store,
		fleet:       reg,
		quote:       quote,
		notifier:    notifier,
		auth:        auth,
		logger:      logger,
		etaSpeedMps: 10,
		offers:      make(map[string]map[string]models.Offer),
	}
}

// Estimate prices a trip without creating a ride.
func (b *Broker) Estimate(pickup, dropoff models.Coordinate, at time.Time) Quote {
	km := geomath.RoundKm(geomath.DistanceKm(pickup, dropoff))
	fare := b.quote(km, at)
	return Quote{DistanceKm: km, Total: fare.Total, Surge: fare.Surge, Breakdown: fare.Breakdown}
}

// RequestRide creates a priced ride and broadcasts it. A preferred driver
// puts the ride in DRIVER_PENDING with that driver pre-pledged; otherwise it
// starts REQUESTED. A zero-candidate broadcast is not an error for the
// rider: the ride stays unmatched awaiting dispatcher action.
func (b *Broker) RequestRide(ctx context.Context, req RideRequest) (models.Ride, error) {
	now := time.Now()
	km := geomath.RoundKm(geomath.DistanceKm(req.Pickup, req.Dropoff))
	fare := b.quote(km, now)

	status := models.StatusRequested
	driverID := ""
	if req.PreferredDriverID != "" {
		if _, err := b.fleet.Get(req.PreferredDriverID); err != nil {
			return models.Ride{}, err
		}
		status = models.StatusDriverPending
		driverID = req.PreferredDriverID
	}

	payment := models.Payment{Method: req.PaymentMethod, Status: models.PaymentUnpaid}
	if req.PaymentMethod == "card" && b.auth != nil {
		ref, err := b.auth.Authorize(ctx, fare.Total, "rwf")
		if err != nil {
			b.logger.Warn("card pre-auth failed, continuing unpaid", "error", err)
		} else {
			payment.AuthRef = ref
		}
	}

	ride := b.rides.Create(models.Ride{
		RiderPhone: req.RiderPhone,
		Pickup:     req.Pickup,
		Dropoff:    req.Dropoff,
		DistanceKm: km,
		Price:      fare.Total,
		Status:     status,
		DriverID:   driverID,
		Payment:    payment,
		Surge:      fare.Surge,
		Breakdown:  fare.Breakdown,
		Timeline:   models.Timeline{RequestedAt: now},
	})

	observability.RidesRequested.Inc()
	b.logger.Info("ride requested",
		"ride_id", ride.ID, "distance_km", km, "price", fare.Total, "status", string(status))

	if err := b.Broadcast(ride.ID); err != nil {
		b.logger.Info("ride unmatched", "ride_id", ride.ID, "reason", err.Error())
	}
	return ride, nil
}

// Broadcast publishes one offer per candidate driver. Candidates are the
// pre-selected driver when the ride has one (and that driver is online),
// otherwise every online driver. Returns ErrNoCandidateDrivers when nobody
// qualifies; the ride is left untouched.
func (b *Broker) Broadcast(rideID string) error {
	ride, err := b.rides.Get(rideID)
	if err != nil {
		return err
	}
	switch ride.Status {
	case models.StatusRequested, models.StatusDriverPending:
	default:
		return fmt.Errorf("ride %s is %s: %w", rideID, ride.Status, models.ErrInvalidTransition)
	}

	var candidates []models.Driver
	if ride.DriverID != "" {
		d, err := b.fleet.Get(ride.DriverID)
		if err == nil && d.Status == models.DriverOnline {
			candidates = []models.Driver{d}
		}
	} else {
		candidates = b.fleet.Online()
	}
	if len(candidates) == 0 {
		return fmt.Errorf("ride %s: %w", rideID, models.ErrNoCandidateDrivers)
	}

	now := time.Now()
	created := make([]models.Offer, 0, len(candidates))
	b.mu.Lock()
	byDriver := b.offers[rideID]
	if byDriver == nil {
		byDriver = make(map[string]models.Offer)
		b.offers[rideID] = byDriver
	}
	for _, d := range candidates {
		if _, exists := byDriver[d.ID]; exists {
			continue // rebroadcast must not duplicate an open offer
		}
		o := models.Offer{
			RideID:     rideID,
			DriverID:   d.ID,
			Pickup:     ride.Pickup,
			Dropoff:    ride.Dropoff,
			DistanceKm: ride.DistanceKm,
			Price:      ride.Price,
			EtaSeconds: geomath.DistanceKm(d.Position, ride.Pickup) * 1000 / b.etaSpeedMps,
			CreatedAt:  now,
		}
		byDriver[d.ID] = o
		created = append(created, o)
	}
	b.mu.Unlock()

	for _, o := range created {
		b.notifier.OfferCreated(o)
	}
	observability.OffersPublished.Add(float64(len(created)))
	return nil
}

// Accept resolves the offer race. First accept wins: the winner's commit
// atomically withdraws every sibling offer for the ride, so the N-1 losers
// fail with ErrStaleOffer and exactly one driver ends up on_trip.
func (b *Broker) Accept(rideID, driverID string) (models.Ride, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.offers[rideID][driverID]; !ok {
		observability.AcceptsLost.Inc()
		return models.Ride{}, fmt.Errorf("no open offer for ride %s driver %s: %w", rideID, driverID, models.ErrStaleOffer)
	}
	return b.commitAssignment(rideID, driverID)
}

// Reject discards a single offer. No other side effect: if it was the last
// open offer the ride simply stays unmatched.
func (b *Broker) Reject(rideID, driverID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	byDriver := b.offers[rideID]
	if _, ok := byDriver[driverID]; !ok {
		return fmt.Errorf("no open offer for ride %s driver %s: %w", rideID, driverID, models.ErrStaleOffer)
	}
	delete(byDriver, driverID)
	if len(byDriver) == 0 {
		delete(b.offers, rideID)
		b.logger.Info("last offer rejected, ride unmatched", "ride_id", rideID)
	}
	return nil
}

// ForceAssign is the dispatcher override: identical to Accept but without
// requiring an open offer. Used to resolve unmatched rides.
func (b *Broker) ForceAssign(rideID, driverID string) (models.Ride, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commitAssignment(rideID, driverID)
}

// commitAssignment is the single-transaction core shared by Accept and
// ForceAssign; the caller holds b.mu.
func (b *Broker) commitAssignment(rideID, driverID string) (models.Ride, error) {
	d, err := b.fleet.Get(driverID)
	if err != nil {
		return models.Ride{}, err
	}
	if d.Status != models.DriverOnline {
		return models.Ride{}, fmt.Errorf("driver %s is %s, not online: %w", driverID, d.Status, models.ErrInvalidTransition)
	}

	ride, err := b.rides.AssignDriver(rideID, driverID, time.Now())
	if err != nil {
		return models.Ride{}, err
	}

	// Withdraw every sibling offer before releasing the lock.
	var withdrawn []string
	for other := range b.offers[rideID] {
		if other != driverID {
			withdrawn = append(withdrawn, other)
		}
	}
	delete(b.offers, rideID)

	if err := b.fleet.SetStatus(driverID, models.DriverOnTrip); err != nil {
		// Drivers are never deleted, so this should be unreachable.
		b.logger.Error("driver vanished mid-accept", "ride_id", rideID, "driver_id", driverID, "error", err)
		return models.Ride{}, fmt.Errorf("driver %s vanished mid-accept: %w", driverID, err)
	}

	sort.Strings(withdrawn)
	for _, other := range withdrawn {
		b.notifier.OfferWithdrawn(rideID, other)
	}

	observability.AcceptsWon.Inc()
	b.logger.Info("ride assigned", "ride_id", rideID, "driver_id", driverID, "withdrawn_offers", len(withdrawn))
	return ride, nil
}

// StartTrip is the explicit rider/operator action moving ARRIVED -> IN_TRIP.
// Any other current status is a no-op reported as ErrInvalidTransition.
func (b *Broker) StartTrip(rideID string) (models.Ride, error) {
	ride, err := b.rides.Transition(rideID, models.StatusArrived, models.StatusInTrip, time.Now())
	if err != nil {
		return models.Ride{}, err
	}
	b.logger.Info("trip started", "ride_id", rideID, "driver_id", ride.DriverID)
	return ride, nil
}

// OffersFor is the driver inbox: open offers for one driver, newest first.
func (b *Broker) OffersFor(driverID string) []models.Offer {
	b.mu.Lock()
	out := make([]models.Offer, 0, 4)
	for _, byDriver := range b.offers {
		if o, ok := byDriver[driverID]; ok {
			out = append(out, o)
		}
	}
	b.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].RideID < out[j].RideID
	})
	return out
}
