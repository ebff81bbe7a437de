package archive

import (
	"sync"

	"github.com/didier-building/agaciro-drivers-mvp/internal/models"
)

// Archiver persists finished rides for history and reporting. The live
// lifecycle never reads the archive back; it is write-only from the core's
// point of view.
type Archiver interface {
	ArchiveRide(r models.Ride) error
}

// Memory is the default archive when no database is configured.
type Memory struct {
	mu    sync.RWMutex
	rides []models.Ride
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) ArchiveRide(r models.Ride) error {
	m.mu.Lock()
	m.rides = append(m.rides, r)
	m.mu.Unlock()
	return nil
}

// Completed returns a snapshot of everything archived so far.
func (m *Memory) Completed() []models.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Ride, len(m.rides))
	copy(out, m.rides)
	return out
}
