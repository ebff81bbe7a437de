package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/didier-building/agaciro-drivers-mvp/internal/fleet"
	"github.com/didier-building/agaciro-drivers-mvp/internal/models"
	"github.com/didier-building/agaciro-drivers-mvp/internal/pricing"
	"github.com/didier-building/agaciro-drivers-mvp/internal/rides"
)

type notifierSpy struct {
	mu        sync.Mutex
	created   []models.Offer
	withdrawn []string // driver ids
}

func (n *notifierSpy) OfferCreated(o models.Offer) {
	n.mu.Lock()
	n.created = append(n.created, o)
	n.mu.Unlock()
}

func (n *notifierSpy) OfferWithdrawn(rideID, driverID string) {
	n.mu.Lock()
	n.withdrawn = append(n.withdrawn, driverID)
	n.mu.Unlock()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBroker(t *testing.T) (*Broker, *rides.Store, *fleet.Registry, *notifierSpy) {
	t.Helper()
	reg := fleet.NewRegistry(nil)
	reg.Seed([]models.Driver{
		{ID: "DRV-01", Name: "Eric N.", Status: models.DriverOnline, Position: models.Coordinate{Lat: -1.955, Lng: 30.095}},
		{ID: "DRV-02", Name: "Aline M.", Status: models.DriverOnline, Position: models.Coordinate{Lat: -1.945, Lng: 30.083}},
		{ID: "DRV-03", Name: "Patrick K.", Status: models.DriverOffline, Position: models.Coordinate{Lat: -1.968, Lng: 30.045}},
	})
	store := rides.NewStore(nil)
	spy := &notifierSpy{}
	b := NewBroker(store, reg, pricing.Quote, spy, nil, testLogger())
	return b, store, reg, spy
}

func requestCash(t *testing.T, b *Broker, preferred string) models.Ride {
	t.Helper()
	r, err := b.RequestRide(context.Background(), RideRequest{
		Pickup:            models.Coordinate{Lat: -1.9506, Lng: 30.0605},
		Dropoff:           models.Coordinate{Lat: -1.9622, Lng: 30.1182},
		RiderPhone:        "+250780001111",
		PaymentMethod:     "cash",
		PreferredDriverID: preferred,
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRequestRideBroadcastsToAllOnline(t *testing.T) {
	b, _, _, spy := newTestBroker(t)
	r := requestCash(t, b, "")

	if r.Status != models.StatusRequested {
		t.Fatalf("status = %s", r.Status)
	}
	if r.Price <= 0 || r.DistanceKm <= 0 {
		t.Fatalf("ride not priced: %+v", r)
	}
	if len(b.OffersFor("DRV-01")) != 1 || len(b.OffersFor("DRV-02")) != 1 {
		t.Fatal("online drivers did not all receive an offer")
	}
	if len(b.OffersFor("DRV-03")) != 0 {
		t.Fatal("offline driver received an offer")
	}
	spy.mu.Lock()
	defer spy.mu.Unlock()
	if len(spy.created) != 2 {
		t.Fatalf("expected 2 offer notices, got %d", len(spy.created))
	}
}

func TestPreferredDriverGetsSoleOffer(t *testing.T) {
	b, _, _, _ := newTestBroker(t)
	r := requestCash(t, b, "DRV-02")

	if r.Status != models.StatusDriverPending || r.DriverID != "DRV-02" {
		t.Fatalf("got %+v", r)
	}
	if len(b.OffersFor("DRV-02")) != 1 {
		t.Fatal("preferred driver missing offer")
	}
	if len(b.OffersFor("DRV-01")) != 0 {
		t.Fatal("offer leaked to non-preferred driver")
	}
}

func TestPreferredDriverOfflineLeavesRideUnmatched(t *testing.T) {
	b, _, _, _ := newTestBroker(t)
	r := requestCash(t, b, "DRV-03")

	if r.Status != models.StatusDriverPending {
		t.Fatalf("status = %s", r.Status)
	}
	for _, id := range []string{"DRV-01", "DRV-02", "DRV-03"} {
		if len(b.OffersFor(id)) != 0 {
			t.Fatalf("driver %s unexpectedly has an offer", id)
		}
	}
}

func TestUnknownPreferredDriver(t *testing.T) {
	b, _, _, _ := newTestBroker(t)
	_, err := b.RequestRide(context.Background(), RideRequest{
		Pickup:            models.Coordinate{Lat: -1.95, Lng: 30.06},
		Dropoff:           models.Coordinate{Lat: -1.96, Lng: 30.11},
		RiderPhone:        "+250780001111",
		PaymentMethod:     "cash",
		PreferredDriverID: "DRV-99",
	})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAcceptCommitsRideAndDriver(t *testing.T) {
	b, store, reg, spy := newTestBroker(t)
	r := requestCash(t, b, "")

	got, err := b.Accept(r.ID, "DRV-01")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusDriverAccepted || got.DriverID != "DRV-01" {
		t.Fatalf("got %+v", got)
	}
	if got.Timeline.AcceptedAt == nil {
		t.Fatal("acceptedAt not stamped")
	}
	d, _ := reg.Get("DRV-01")
	if d.Status != models.DriverOnTrip {
		t.Fatalf("driver status = %s", d.Status)
	}
	stored, _ := store.Get(r.ID)
	if stored.Status != models.StatusDriverAccepted {
		t.Fatalf("store saw %s", stored.Status)
	}
	spy.mu.Lock()
	defer spy.mu.Unlock()
	if len(spy.withdrawn) != 1 || spy.withdrawn[0] != "DRV-02" {
		t.Fatalf("sibling withdrawal notices = %v", spy.withdrawn)
	}
}

func TestAcceptExclusivityUnderContention(t *testing.T) {
	b, _, reg, _ := newTestBroker(t)
	if err := reg.SetOnline("DRV-03", true); err != nil {
		t.Fatal(err)
	}
	r := requestCash(t, b, "")

	drivers := []string{"DRV-01", "DRV-02", "DRV-03"}
	var wg sync.WaitGroup
	errs := make([]error, len(drivers))
	for i, id := range drivers {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = b.Accept(r.ID, id)
		}(i, id)
	}
	wg.Wait()

	wins, stale := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, models.ErrStaleOffer):
			stale++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || stale != len(drivers)-1 {
		t.Fatalf("wins=%d stale=%d", wins, stale)
	}

	onTrip := 0
	for _, d := range reg.List() {
		if d.Status == models.DriverOnTrip {
			onTrip++
		}
	}
	if onTrip != 1 {
		t.Fatalf("expected exactly one on_trip driver, got %d", onTrip)
	}
}

func TestRejectDiscardsSingleOffer(t *testing.T) {
	b, _, _, _ := newTestBroker(t)
	r := requestCash(t, b, "")

	if err := b.Reject(r.ID, "DRV-01"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Accept(r.ID, "DRV-01"); !errors.Is(err, models.ErrStaleOffer) {
		t.Fatalf("expected ErrStaleOffer after reject, got %v", err)
	}
	// The sibling offer is untouched.
	if _, err := b.Accept(r.ID, "DRV-02"); err != nil {
		t.Fatal(err)
	}
}

func TestRejectTwiceIsStale(t *testing.T) {
	b, _, _, _ := newTestBroker(t)
	r := requestCash(t, b, "")
	if err := b.Reject(r.ID, "DRV-01"); err != nil {
		t.Fatal(err)
	}
	if err := b.Reject(r.ID, "DRV-01"); !errors.Is(err, models.ErrStaleOffer) {
		t.Fatalf("expected ErrStaleOffer, got %v", err)
	}
}

func TestForceAssignBypassesOffers(t *testing.T) {
	b, _, reg, _ := newTestBroker(t)
	r := requestCash(t, b, "DRV-03") // offline preferred driver: no offers

	if err := reg.SetOnline("DRV-03", true); err != nil {
		t.Fatal(err)
	}
	got, err := b.ForceAssign(r.ID, "DRV-03")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusDriverAccepted || got.DriverID != "DRV-03" {
		t.Fatalf("got %+v", got)
	}
}

func TestForceAssignBusyDriver(t *testing.T) {
	b, _, _, _ := newTestBroker(t)
	first := requestCash(t, b, "")
	if _, err := b.Accept(first.ID, "DRV-01"); err != nil {
		t.Fatal(err)
	}
	second := requestCash(t, b, "")
	if _, err := b.ForceAssign(second.ID, "DRV-01"); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for busy driver, got %v", err)
	}
}

func TestForceAssignResolvedRide(t *testing.T) {
	b, _, _, _ := newTestBroker(t)
	r := requestCash(t, b, "")
	if _, err := b.Accept(r.ID, "DRV-01"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.ForceAssign(r.ID, "DRV-02"); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestStartTripRequiresArrived(t *testing.T) {
	b, _, _, _ := newTestBroker(t)
	r := requestCash(t, b, "")
	if _, err := b.StartTrip(r.ID); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	// Still REQUESTED: the failed call was a no-op.
	if _, err := b.Accept(r.ID, "DRV-01"); err != nil {
		t.Fatal(err)
	}
}

func TestRebroadcastDoesNotDuplicateOffers(t *testing.T) {
	b, _, _, _ := newTestBroker(t)
	r := requestCash(t, b, "")
	if err := b.Broadcast(r.ID); err != nil {
		t.Fatal(err)
	}
	if n := len(b.OffersFor("DRV-01")); n != 1 {
		t.Fatalf("expected 1 offer after rebroadcast, got %d", n)
	}
}

func TestBroadcastNoCandidates(t *testing.T) {
	b, _, reg, _ := newTestBroker(t)
	for _, id := range []string{"DRV-01", "DRV-02"} {
		if err := reg.SetOnline(id, false); err != nil {
			t.Fatal(err)
		}
	}
	r := requestCash(t, b, "")
	if err := b.Broadcast(r.ID); !errors.Is(err, models.ErrNoCandidateDrivers) {
		t.Fatalf("expected ErrNoCandidateDrivers, got %v", err)
	}
}

func TestEstimateDaytimeSurge(t *testing.T) {
	b, _, _, _ := newTestBroker(t)
	at := time.Date(2024, 3, 14, 11, 0, 0, 0, time.UTC)
	q := b.Estimate(models.Coordinate{}, models.Coordinate{Lat: 0, Lng: 0.0777}, at)
	// 0.0777 deg of longitude at the equator is ~8.6km: surge territory.
	if q.DistanceKm != 8.6 {
		t.Fatalf("distance = %v", q.DistanceKm)
	}
	if q.Surge != 1.1 {
		t.Fatalf("surge = %v", q.Surge)
	}
	if q.Total != 9218 {
		t.Fatalf("total = %d, want 9218", q.Total)
	}
}
