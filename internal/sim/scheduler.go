package sim

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/didier-building/agaciro-drivers-mvp/internal/fleet"
	"github.com/didier-building/agaciro-drivers-mvp/internal/geomath"
	"github.com/didier-building/agaciro-drivers-mvp/internal/models"
	"github.com/didier-building/agaciro-drivers-mvp/internal/observability"
	"github.com/didier-building/agaciro-drivers-mvp/internal/rides"
)

const (
	// DefaultPeriod is the simulation tick interval.
	DefaultPeriod = 800 * time.Millisecond

	// DefaultStep is the per-tick movement in degrees. Small enough that a
	// typical Kigali pickup takes a perceptible number of ticks, large
	// enough that every ride terminates quickly.
	DefaultStep = 0.0007
)

// Scheduler advances every active ride on a fixed period: it steps the
// assigned driver toward the ride's current waypoint and fires the status
// transition when the waypoint is reached. Ticks run serially in one
// goroutine, so a tick that overruns the period causes later ticks to be
// skipped by the ticker rather than queued.
type Scheduler struct {
	rides  *rides.Store
	fleet  *fleet.Registry
	step   float64
	period time.Duration
	logger *slog.Logger
}

func NewScheduler(store *rides.Store, reg *fleet.Registry, step float64, period time.Duration, logger *slog.Logger) *Scheduler {
	if step <= 0 {
		step = DefaultStep
	}
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Scheduler{rides: store, fleet: reg, step: step, period: period, logger: logger}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.period)
	defer t.Stop()
	s.logger.Info("simulation scheduler started", "period", s.period.String(), "step", s.step)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("simulation scheduler stopped")
			return
		case now := <-t.C:
			start := time.Now()
			s.Tick(now)
			observability.TickDuration.Observe(time.Since(start).Seconds())
		}
	}
}

// Tick advances every assignable ride once. Exported so tests drive the
// simulation deterministically without the ticker.
func (s *Scheduler) Tick(now time.Time) {
	active := s.rides.Active()
	for _, ride := range active {
		s.advance(ride, now)
	}
	observability.ActiveRides.Set(float64(len(active)))
	observability.DriversOnline.Set(float64(len(s.fleet.Online())))
}

// advance moves one ride's driver a single step and commits at most one
// status transition. Every commit re-validates the ride's status through
// the store CAS, so racing an in-flight accept or startTrip only costs this
// tick its transition; the next tick resumes from the winner's state.
func (s *Scheduler) advance(ride models.Ride, now time.Time) {
	var waypoint models.Coordinate
	switch ride.Status {
	case models.StatusDriverAccepted, models.StatusEnRoute:
		waypoint = ride.Pickup
	case models.StatusInTrip:
		waypoint = ride.Dropoff
	default:
		// DRIVER_PENDING awaits the pre-selected driver; ARRIVED awaits
		// startTrip. Neither moves.
		return
	}

	driver, err := s.fleet.Get(ride.DriverID)
	if err != nil {
		s.logger.Error("active ride references unknown driver", "ride_id", ride.ID, "driver_id", ride.DriverID)
		return
	}

	next, arrived := geomath.StepToward(driver.Position, waypoint, s.step)
	if err := s.fleet.SetPosition(ride.DriverID, next); err != nil {
		return
	}

	switch {
	case ride.Status == models.StatusDriverAccepted:
		// Movement has begun. Even if the step already landed on the pickup
		// the ride passes through EN_ROUTE; arrival fires next tick.
		s.transition(ride.ID, models.StatusDriverAccepted, models.StatusEnRoute, now)
	case ride.Status == models.StatusEnRoute && arrived:
		s.transition(ride.ID, models.StatusEnRoute, models.StatusArrived, now)
	case ride.Status == models.StatusInTrip && arrived:
		if s.transition(ride.ID, models.StatusInTrip, models.StatusCompleted, now) {
			if err := s.fleet.SetStatus(ride.DriverID, models.DriverOnline); err != nil {
				s.logger.Error("failed to release driver", "driver_id", ride.DriverID, "error", err)
			}
			observability.RidesCompleted.Inc()
			s.logger.Info("ride completed", "ride_id", ride.ID, "driver_id", ride.DriverID, "price", ride.Price)
		}
	}
}

func (s *Scheduler) transition(rideID string, from, to models.RideStatus, now time.Time) bool {
	if _, err := s.rides.Transition(rideID, from, to, now); err != nil {
		// Lost a race with accept/startTrip; harmless, retried next tick.
		if !errors.Is(err, models.ErrInvalidTransition) {
			s.logger.Warn("tick transition failed", "ride_id", rideID, "from", string(from), "to", string(to), "error", err)
		}
		return false
	}
	return true
}
