package internal

import (
	"reflect"
	"testing"
	"time"
)

func TestFindMissingDates(t *testing.T) {
	tests := []struct {
		name      string
		start     time.Time
		recorded  []time.Time
		totalDays int
		expected  []string
	}{
		{
			name:      "gaps in order",
			start:     day("2024-01-01"),
			recorded:  []time.Time{day("2024-01-01"), day("2024-01-03")},
			totalDays: 5,
			expected:  []string{"02-01-2024", "04-01-2024", "05-01-2024"},
		},
		{
			name:      "complete plan",
			start:     day("2024-01-01"),
			recorded:  []time.Time{day("2024-01-02"), day("2024-01-01")},
			totalDays: 2,
			expected:  nil,
		},
		{
			name:      "recorded days outside the window are ignored",
			start:     day("2024-01-01"),
			recorded:  []time.Time{day("2023-12-31"), day("2024-01-02")},
			totalDays: 2,
			expected:  []string{"01-01-2024"},
		},
		{
			name:      "month boundary",
			start:     day("2024-02-28"),
			recorded:  []time.Time{day("2024-02-28")},
			totalDays: 3,
			expected:  []string{"29-02-2024", "01-03-2024"},
		},
		{
			name:      "zero total days",
			start:     day("2024-01-01"),
			recorded:  []time.Time{day("2024-01-01")},
			totalDays: 0,
		},
		{
			name:      "negative total days",
			start:     day("2024-01-01"),
			recorded:  []time.Time{day("2024-01-01")},
			totalDays: -3,
		},
		{
			name:      "no start",
			recorded:  []time.Time{day("2024-01-01")},
			totalDays: 5,
		},
		{
			name:      "nothing recorded",
			start:     day("2024-01-01"),
			totalDays: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			missing := FindMissingDates(tt.start, tt.recorded, tt.totalDays)
			var got []string
			for _, d := range missing {
				got = append(got, FormatDisplay(d))
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("FindMissingDates() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPlanGaps(t *testing.T) {
	p := PlanAssignment{
		ClientID:        "c1",
		PlanID:          "p1",
		StartDate:       "01-03-2024",
		TotalDays:       floatPtr(5),
		EmbeddedDayKeys: []string{"01-03-2024", "02-03-2024", "04-03-2024"},
	}

	gap := PlanGaps(p, day("2024-03-21"))

	if gap.Recorded != 3 {
		t.Errorf("expected 3 recorded days, got %d", gap.Recorded)
	}
	expected := []string{"03-03-2024", "05-03-2024"}
	if !reflect.DeepEqual(gap.MissingDates, expected) {
		t.Errorf("expected %v, got %v", expected, gap.MissingDates)
	}
}

func TestPlanGapsWithoutDayMap(t *testing.T) {
	gap := PlanGaps(PlanAssignment{StartDate: "01-03-2024", TotalDays: floatPtr(5)}, day("2024-03-21"))
	if len(gap.MissingDates) != 0 {
		t.Errorf("expected no gaps without recorded days, got %v", gap.MissingDates)
	}
}

func TestFindMissingDatesBoundsTheWindow(t *testing.T) {
	start := day("2024-01-01")
	missing := FindMissingDates(start, []time.Time{start}, 1_000_000_000)

	if len(missing) != maxGapWindowDays-1 {
		t.Fatalf("expected the window to stop at %d days, got %d missing", maxGapWindowDays, len(missing))
	}
	last := missing[len(missing)-1]
	if want := start.AddDate(0, 0, maxGapWindowDays-1); !SameDay(last, want) {
		t.Errorf("expected last missing day %s, got %s", FormatDisplay(want), FormatDisplay(last))
	}
}

func TestPlanGapsHugeTotalDays(t *testing.T) {
	p := PlanAssignment{
		StartDate:       "01-03-2024",
		TotalDays:       floatPtr(1e30),
		EmbeddedDayKeys: []string{"01-03-2024"},
	}
	gap := PlanGaps(p, day("2024-03-21"))
	if gap.Timeline.TotalDays == nil || *gap.Timeline.TotalDays <= 0 {
		t.Fatalf("expected a positive clamped total, got %v", gap.Timeline.TotalDays)
	}
	if len(gap.MissingDates) != maxGapWindowDays-1 {
		t.Errorf("expected %d missing days, got %d", maxGapWindowDays-1, len(gap.MissingDates))
	}
}
