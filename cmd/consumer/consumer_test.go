package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/didier-building/agaciro-drivers-mvp/internal/events"
	"github.com/didier-building/agaciro-drivers-mvp/internal/models"
)

// fakeUpdater implements RedisUpdater for tests
type fakeUpdater struct {
	fail  int // number of times to fail before succeeding
	calls int
	last  map[string]interface{}
}

func (f *fakeUpdater) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	f.calls++
	if f.calls <= f.fail {
		return errors.New("hset fail")
	}
	f.last = values
	return nil
}

func testEvent() events.RideEvent {
	return events.RideEvent{
		RideID:     "RID-ABC12345",
		Status:     models.StatusEnRoute,
		DriverID:   "DRV-01",
		DistanceKm: 6.5,
		Price:      6700,
		At:         time.Now(),
	}
}

func TestUpdateRedisWithRetry_SucceedsAfterRetries(t *testing.T) {
	f := &fakeUpdater{fail: 2}
	start := time.Now()
	if err := updateRedisWithRetry(context.Background(), f, testEvent(), 3, 10*time.Millisecond); err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if f.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", f.calls)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("expected at least one backoff")
	}
	if f.last["status"] != "EN_ROUTE" {
		t.Fatalf("wrote %v", f.last)
	}
}

func TestUpdateRedisWithRetry_FailsWhenExhausted(t *testing.T) {
	f := &fakeUpdater{fail: 5}
	if err := updateRedisWithRetry(context.Background(), f, testEvent(), 3, 5*time.Millisecond); err == nil {
		t.Fatalf("expected error after retries")
	}
}
