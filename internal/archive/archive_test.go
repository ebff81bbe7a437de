package archive

import (
	"testing"
	"time"

	"github.com/didier-building/agaciro-drivers-mvp/internal/models"
)

func TestMemoryArchiveKeepsCopies(t *testing.T) {
	m := NewMemory()
	done := time.Now()
	r := models.Ride{
		ID:       "RID-00000001",
		DriverID: "DRV-01",
		Status:   models.StatusCompleted,
		Price:    6700,
		Timeline: models.Timeline{CompletedAt: &done},
	}
	if err := m.ArchiveRide(r); err != nil {
		t.Fatal(err)
	}
	got := m.Completed()
	if len(got) != 1 || got[0].ID != r.ID {
		t.Fatalf("archive = %+v", got)
	}
	// Mutating the snapshot must not touch the archive.
	got[0].Price = 0
	if m.Completed()[0].Price != 6700 {
		t.Fatal("archive aliased caller slice")
	}
}
