package rides

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/didier-building/agaciro-drivers-mvp/internal/models"
)

// Journal receives a copy of every committed ride change, in commit order.
// Delivery may lag the commit that produced it when the journal is slow.
// Used to stream lifecycle events and archive completed rides.
type Journal interface {
	RideChanged(r models.Ride)
}

// Store is the exclusive owner of ride records. Rides are created on
// request and never deleted; they are retained for history and reporting.
// All status moves go through compare-and-set operations that re-validate
// the current status under the lock, so a caller acting on a stale read
// fails with ErrInvalidTransition instead of corrupting the machine.
type Store struct {
	mu      sync.RWMutex
	rides   map[string]models.Ride
	journal Journal

	// Committed changes queue here under mu, so queue order is commit
	// order; a single drainer hands them to the journal outside the lock.
	jmu        sync.Mutex
	queue      []models.Ride
	delivering bool
}

func NewStore(journal Journal) *Store {
	return &Store{rides: make(map[string]models.Ride), journal: journal}
}

// Create registers a new ride. Status must be REQUESTED, or DRIVER_PENDING
// with the preferred driver already set on the record.
func (s *Store) Create(r models.Ride) models.Ride {
	if r.ID == "" {
		r.ID = NewRideID()
	}
	if r.Timeline.RequestedAt.IsZero() {
		r.Timeline.RequestedAt = time.Now()
	}
	s.mu.Lock()
	s.rides[r.ID] = r
	s.enqueue(r)
	s.mu.Unlock()
	s.deliver()
	return r
}

func (s *Store) Get(id string) (models.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rides[id]
	if !ok {
		return models.Ride{}, fmt.Errorf("ride %s: %w", id, models.ErrNotFound)
	}
	return r, nil
}

// List returns a snapshot of all rides, newest request first.
func (s *Store) List() []models.Ride {
	s.mu.RLock()
	out := make([]models.Ride, 0, len(s.rides))
	for _, r := range s.rides {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timeline.RequestedAt.Equal(out[j].Timeline.RequestedAt) {
			return out[i].Timeline.RequestedAt.After(out[j].Timeline.RequestedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Active returns rides that have a driver and are not yet completed.
func (s *Store) Active() []models.Ride {
	all := s.List()
	out := all[:0]
	for _, r := range all {
		if r.DriverID != "" && !r.Status.Terminal() {
			out = append(out, r)
		}
	}
	return out
}

// AssignDriver commits REQUESTED|DRIVER_PENDING -> DRIVER_ACCEPTED and sets
// the driver, atomically. A DRIVER_PENDING ride only accepts its
// pre-selected driver.
func (s *Store) AssignDriver(id, driverID string, now time.Time) (models.Ride, error) {
	r, err := s.commit(id, func(r *models.Ride) error {
		if !r.Status.CanTransitionTo(models.StatusDriverAccepted) {
			return fmt.Errorf("ride %s is %s: %w", id, r.Status, models.ErrInvalidTransition)
		}
		if r.DriverID != "" && r.DriverID != driverID {
			return fmt.Errorf("ride %s already pledged to %s: %w", id, r.DriverID, models.ErrStaleOffer)
		}
		r.DriverID = driverID
		r.Status = models.StatusDriverAccepted
		t := now
		r.Timeline.AcceptedAt = &t
		return nil
	})
	return r, err
}

// Transition commits from -> to if the ride is still in from, stamping the
// timeline. The from re-validation is what keeps a scheduler tick working
// from a stale snapshot from committing anything.
func (s *Store) Transition(id string, from, to models.RideStatus, now time.Time) (models.Ride, error) {
	return s.commit(id, func(r *models.Ride) error {
		if r.Status != from || !from.CanTransitionTo(to) {
			return fmt.Errorf("ride %s is %s, not %s -> %s: %w", id, r.Status, from, to, models.ErrInvalidTransition)
		}
		r.Status = to
		t := now
		switch to {
		case models.StatusArrived:
			r.Timeline.ArrivedAt = &t
		case models.StatusInTrip:
			r.Timeline.StartedAt = &t
		case models.StatusCompleted:
			r.Timeline.CompletedAt = &t
		}
		return nil
	})
}

func (s *Store) commit(id string, fn func(*models.Ride) error) (models.Ride, error) {
	s.mu.Lock()
	r, ok := s.rides[id]
	if !ok {
		s.mu.Unlock()
		return models.Ride{}, fmt.Errorf("ride %s: %w", id, models.ErrNotFound)
	}
	if err := fn(&r); err != nil {
		s.mu.Unlock()
		return models.Ride{}, err
	}
	s.rides[id] = r
	s.enqueue(r)
	s.mu.Unlock()
	s.deliver()
	return r, nil
}

// enqueue appends a committed ride for journal delivery. Called under s.mu;
// jmu is only ever held for queue bookkeeping, never across a journal call,
// so taking it here cannot stall a commit.
func (s *Store) enqueue(r models.Ride) {
	if s.journal == nil {
		return
	}
	s.jmu.Lock()
	s.queue = append(s.queue, r)
	s.jmu.Unlock()
}

// deliver drains the queue to the journal. At most one goroutine drains at
// a time, so deliveries happen in commit order even when committers race
// here, and a slow journal delays delivery rather than commits.
func (s *Store) deliver() {
	if s.journal == nil {
		return
	}
	s.jmu.Lock()
	if s.delivering {
		s.jmu.Unlock()
		return
	}
	s.delivering = true
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.jmu.Unlock()
		s.journal.RideChanged(next)
		s.jmu.Lock()
	}
	s.delivering = false
	s.jmu.Unlock()
}

// NewRideID mints ids like RID-3F2A9C41.
func NewRideID() string {
	return "RID-" + strings.ToUpper(uuid.NewString()[:8])
}
