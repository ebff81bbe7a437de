package fleet

import (
	"fmt"
	"sort"
	"sync"

	"github.com/didier-building/agaciro-drivers-mvp/internal/models"
)

// Mirror receives a copy of every driver write so external consumers (the
// Redis geo index, dashboards) can follow the fleet. Best-effort; the
// in-memory registry stays canonical.
type Mirror interface {
	Publish(d models.Driver)
}

// Registry is the exclusive owner of driver records. It is a plain mutable
// store: status and position writes are atomic per record, but lifecycle
// legality (e.g. only an online driver may go on_trip) is enforced by the
// dispatch broker's acceptance protocol, not here.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]models.Driver
	mirror  Mirror
}

func NewRegistry(mirror Mirror) *Registry {
	return &Registry{drivers: make(map[string]models.Driver), mirror: mirror}
}

// Seed loads the startup fleet. Drivers are process-lifetime: created here,
// never destroyed.
func (r *Registry) Seed(drivers []models.Driver) {
	r.mu.Lock()
	for _, d := range drivers {
		r.drivers[d.ID] = d
	}
	r.mu.Unlock()
	for _, d := range drivers {
		r.publish(d)
	}
}

func (r *Registry) Get(id string) (models.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[id]
	if !ok {
		return models.Driver{}, fmt.Errorf("driver %s: %w", id, models.ErrNotFound)
	}
	return d, nil
}

// List returns a snapshot sorted by id for stable output.
func (r *Registry) List() []models.Driver {
	r.mu.RLock()
	out := make([]models.Driver, 0, len(r.drivers))
	for _, d := range r.drivers {
		out = append(out, d)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Online returns the drivers currently online (idle), sorted by id.
func (r *Registry) Online() []models.Driver {
	all := r.List()
	out := all[:0]
	for _, d := range all {
		if d.Status == models.DriverOnline {
			out = append(out, d)
		}
	}
	return out
}

func (r *Registry) SetStatus(id string, status models.DriverStatus) error {
	d, err := r.update(id, func(d *models.Driver) { d.Status = status })
	if err != nil {
		return err
	}
	r.publish(d)
	return nil
}

func (r *Registry) SetPosition(id string, pos models.Coordinate) error {
	d, err := r.update(id, func(d *models.Driver) { d.Position = pos })
	if err != nil {
		return err
	}
	r.publish(d)
	return nil
}

// SetOnline is the driver self-service toggle. It never touches a driver
// that is on_trip; the scheduler flips those back to online on completion.
func (r *Registry) SetOnline(id string, online bool) error {
	status := models.DriverOffline
	if online {
		status = models.DriverOnline
	}
	d, err := r.update(id, func(d *models.Driver) {
		if d.Status != models.DriverOnTrip {
			d.Status = status
		}
	})
	if err != nil {
		return err
	}
	r.publish(d)
	return nil
}

func (r *Registry) update(id string, fn func(*models.Driver)) (models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[id]
	if !ok {
		return models.Driver{}, fmt.Errorf("driver %s: %w", id, models.ErrNotFound)
	}
	fn(&d)
	r.drivers[id] = d
	return d, nil
}

func (r *Registry) publish(d models.Driver) {
	if r.mirror != nil {
		r.mirror.Publish(d)
	}
}
