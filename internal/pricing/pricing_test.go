package pricing

import (
	"testing"
	"time"
)

func at(hour int) time.Time {
	return time.Date(2024, 3, 14, hour, 30, 0, 0, time.UTC)
}

func TestQuoteZeroDistanceDaytime(t *testing.T) {
	f := Quote(0, at(12))
	if f.Total != 1500 {
		t.Fatalf("expected base fare 1500, got %d", f.Total)
	}
	if f.Surge != 1.0 || f.Breakdown.NightPct != 0 {
		t.Fatalf("unexpected modifiers: surge=%v night=%v", f.Surge, f.Breakdown.NightPct)
	}
}

func TestQuoteNightAndSurge(t *testing.T) {
	// 10km at 20:00: round((1500 + 800*10) * 1.3 * 1.1) = 13585
	f := Quote(10, at(20))
	if f.Total != 13585 {
		t.Fatalf("expected 13585, got %d", f.Total)
	}
	if f.Surge != 1.1 {
		t.Fatalf("expected surge 1.1, got %v", f.Surge)
	}
	if f.Breakdown.NightPct != 0.3 {
		t.Fatalf("expected night pct 0.3, got %v", f.Breakdown.NightPct)
	}
}

func TestQuoteDaytimeLongRide(t *testing.T) {
	// 8.6km daytime: round((1500 + 800*8.6) * 1.1) = round(8380*1.1) = 9218 RWF
	f := Quote(8.6, at(11))
	if f.Total != 9218 {
		t.Fatalf("expected 9218, got %d", f.Total)
	}
}

func TestNightWindowEdges(t *testing.T) {
	cases := []struct {
		hour  int
		night bool
	}{
		{17, false}, {18, true}, {23, true}, {0, true}, {4, true}, {5, false},
	}
	for _, c := range cases {
		f := Quote(1, at(c.hour))
		got := f.Breakdown.NightPct > 0
		if got != c.night {
			t.Fatalf("hour %d: night=%v, want %v", c.hour, got, c.night)
		}
	}
}

func TestSurgeThresholdExclusive(t *testing.T) {
	if f := Quote(8.0, at(12)); f.Surge != 1.0 {
		t.Fatalf("8km exactly must not surge, got %v", f.Surge)
	}
	if f := Quote(8.1, at(12)); f.Surge != 1.1 {
		t.Fatalf("8.1km must surge, got %v", f.Surge)
	}
}
