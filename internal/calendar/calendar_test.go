package calendar

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/hylla/sojourn/internal/domain"
)

func workdayConfig() Config {
	return Config{
		DayStart:        "09:00",
		DayEnd:          "17:00",
		Timezone:        "UTC",
		ExcludeWeekends: true,
	}
}

func mustCalendar(t *testing.T, cfg Config) *Calendar {
	t.Helper()
	cal, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return cal
}

func TestNewRejectsInvertedDay(t *testing.T) {
	cfg := workdayConfig()
	cfg.DayStart = "17:00"
	cfg.DayEnd = "09:00"
	if _, err := New(cfg); !errors.Is(err, domain.ErrInvalidCalendar) {
		t.Fatalf("expected ErrInvalidCalendar, got %v", err)
	}
}

func TestNewRejectsBadInputs(t *testing.T) {
	cfg := workdayConfig()
	cfg.DayStart = "nine"
	if _, err := New(cfg); !errors.Is(err, domain.ErrInvalidCalendar) {
		t.Fatalf("expected ErrInvalidCalendar for bad clock, got %v", err)
	}

	cfg = workdayConfig()
	cfg.Timezone = "Mars/Olympus"
	if _, err := New(cfg); !errors.Is(err, domain.ErrInvalidCalendar) {
		t.Fatalf("expected ErrInvalidCalendar for bad timezone, got %v", err)
	}

	cfg = workdayConfig()
	cfg.Holidays = []string{"12/25/2024"}
	if _, err := New(cfg); !errors.Is(err, domain.ErrInvalidCalendar) {
		t.Fatalf("expected ErrInvalidCalendar for bad holiday, got %v", err)
	}
}

func TestOverlapAcrossWeekend(t *testing.T) {
	cal := mustCalendar(t, workdayConfig())
	// Friday 16:00 to Monday 10:00: one hour Friday plus one hour Monday.
	start := time.Date(2024, 1, 5, 16, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	if got := cal.Overlap(start, end); got != 7200 {
		t.Fatalf("expected 7200 seconds, got %v", got)
	}
}

func TestOverlapEmptyAndInverted(t *testing.T) {
	cal := mustCalendar(t, workdayConfig())
	at := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	if got := cal.Overlap(at, at); got != 0 {
		t.Fatalf("expected 0 for empty interval, got %v", got)
	}
	if got := cal.Overlap(at, at.Add(-time.Hour)); got != 0 {
		t.Fatalf("expected 0 for inverted interval, got %v", got)
	}
}

func TestOverlapExcludedDayIsZero(t *testing.T) {
	cal := mustCalendar(t, workdayConfig())
	// Saturday, fully inside an excluded day.
	start := time.Date(2024, 1, 6, 9, 0, 0, 0, time.UTC)
	if got := cal.Overlap(start, start.Add(8*time.Hour)); got != 0 {
		t.Fatalf("expected 0 on a weekend, got %v", got)
	}

	cfg := workdayConfig()
	cfg.Holidays = []string{"2024-01-03"}
	holidayCal := mustCalendar(t, cfg)
	hStart := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)
	if got := holidayCal.Overlap(hStart, hStart.Add(8*time.Hour)); got != 0 {
		t.Fatalf("expected 0 on a holiday, got %v", got)
	}
}

func TestOverlapTimezoneConversion(t *testing.T) {
	cfg := workdayConfig()
	cfg.Timezone = "America/New_York"
	cfg.ExcludeWeekends = false
	cal := mustCalendar(t, cfg)
	// 14:00-15:00 UTC on Jan 3 is 09:00-10:00 in New York.
	start := time.Date(2024, 1, 3, 14, 0, 0, 0, time.UTC)
	if got := cal.Overlap(start, start.Add(time.Hour)); got != 3600 {
		t.Fatalf("expected 3600 seconds, got %v", got)
	}
	// 05:00-06:00 UTC is midnight hour local, outside the window.
	early := time.Date(2024, 1, 3, 5, 0, 0, 0, time.UTC)
	if got := cal.Overlap(early, early.Add(time.Hour)); got != 0 {
		t.Fatalf("expected 0 before local working hours, got %v", got)
	}
}

func TestOverlapBoundedByWallClock(t *testing.T) {
	cal := mustCalendar(t, workdayConfig())
	rng := rand.New(rand.NewSource(11))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for trial := 0; trial < 100; trial++ {
		start := base.Add(time.Duration(rng.Intn(24*14)) * time.Hour)
		end := start.Add(time.Duration(rng.Intn(24*7)) * time.Hour)
		got := cal.Overlap(start, end)
		wall := end.Sub(start).Seconds()
		if got < 0 || got > wall {
			t.Fatalf("overlap %v outside [0, %v] for [%v, %v]", got, wall, start, end)
		}
	}
}

func TestOverlapAdditivity(t *testing.T) {
	cal := mustCalendar(t, workdayConfig())
	start := time.Date(2024, 1, 2, 7, 30, 0, 0, time.UTC)
	end := time.Date(2024, 1, 9, 19, 45, 0, 0, time.UTC)
	whole := cal.Overlap(start, end)
	rng := rand.New(rand.NewSource(13))
	span := end.Sub(start)
	for trial := 0; trial < 25; trial++ {
		mid := start.Add(time.Duration(rng.Int63n(int64(span))))
		sum := cal.Overlap(start, mid) + cal.Overlap(mid, end)
		if diff := sum - whole; diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("split at %v: sum %v != whole %v", mid, sum, whole)
		}
	}
}
