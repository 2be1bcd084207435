package main

import (
	"testing"
	"time"

	"github.com/gigurra/coach-timeline/internal"
)

func TestUseTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Pacific/Kiritimati")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	cfg, err := internal.ParseConfig([]byte("timezone: Pacific/Kiritimati\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before := time.Local
	restore := useTimezone(cfg)
	if time.Local.String() != loc.String() {
		t.Errorf("expected %s while the command runs, got %s", loc, time.Local)
	}
	// 2024-03-21 12:00 UTC is already the 22nd in UTC+14
	if d, ok := internal.NormalizeString("2024-03-21T12:00:00Z"); !ok || internal.DayKey(d) != "2024-03-22" {
		t.Errorf("expected the instant to fall on 2024-03-22 locally, got %v", d)
	}

	restore()
	if time.Local != before {
		t.Errorf("expected time.Local to be restored to %s, got %s", before, time.Local)
	}
}

func TestUseTimezoneWithoutZone(t *testing.T) {
	before := time.Local
	useTimezone(internal.NewDefaultConfig())()
	useTimezone(nil)()
	if time.Local != before {
		t.Errorf("expected time.Local untouched, got %s", time.Local)
	}
}
