package internal

import (
	"testing"
	"time"
)

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }

func TestResolveSubscriptionTimeline(t *testing.T) {
	today := day("2024-03-21")

	tests := []struct {
		name      string
		sub       Subscription
		start     string // dd-MM-yyyy, "" when unknown
		end       string
		remaining *int
		status    TimelineStatus
	}{
		{
			name:      "explicit fields",
			sub:       Subscription{ValidFrom: "01-01-2024", ValidTill: "31-03-2024"},
			start:     "01-01-2024",
			end:       "31-03-2024",
			remaining: intPtr(10),
			status:    StatusActive,
		},
		{
			name: "most recent history entry by end date",
			sub: Subscription{History: []Period{
				{StartDate: "2024-01-01", EndDate: "2024-06-30"},
				{StartDate: "2023-01-01", EndDate: "2023-12-31"},
			}},
			start:     "01-01-2024",
			end:       "30-06-2024",
			remaining: intPtr(101),
			status:    StatusActive,
		},
		{
			name: "explicit end with history start",
			sub: Subscription{ValidTill: "2024-03-01", History: []Period{
				{StartDate: "2023-09-01", EndDate: "2024-02-01"},
			}},
			start:     "01-09-2023",
			end:       "01-03-2024",
			remaining: intPtr(-20),
			status:    StatusExpired,
		},
		{
			name: "history entries without an end are skipped",
			sub: Subscription{History: []Period{
				{StartDate: "2024-05-01"},
				{StartDate: "2024-01-01", EndDate: "2024-02-01"},
			}},
			start:     "01-01-2024",
			end:       "01-02-2024",
			remaining: intPtr(-49),
			status:    StatusExpired,
		},
		{
			name:   "unparseable dates are unknown",
			sub:    Subscription{ValidFrom: "soon", ValidTill: "later"},
			status: StatusUnknown,
		},
		{
			name:      "upcoming",
			sub:       Subscription{ValidFrom: "01-04-2024", ValidTill: "30-04-2024"},
			start:     "01-04-2024",
			end:       "30-04-2024",
			remaining: intPtr(40),
			status:    StatusUpcoming,
		},
		{
			name:      "ends today is still active",
			sub:       Subscription{ValidTill: "21-03-2024"},
			end:       "21-03-2024",
			remaining: intPtr(0),
			status:    StatusActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := ResolveSubscriptionTimeline(tt.sub, today)

			if got := FormatDisplay(tl.Start); got != tt.start {
				t.Errorf("start = %q, want %q", got, tt.start)
			}
			if got := FormatDisplay(tl.End); got != tt.end {
				t.Errorf("end = %q, want %q", got, tt.end)
			}
			switch {
			case tt.remaining == nil && tl.RemainingDays != nil:
				t.Errorf("remaining = %d, want unknown", *tl.RemainingDays)
			case tt.remaining != nil && tl.RemainingDays == nil:
				t.Errorf("remaining unknown, want %d", *tt.remaining)
			case tt.remaining != nil && *tl.RemainingDays != *tt.remaining:
				t.Errorf("remaining = %d, want %d", *tl.RemainingDays, *tt.remaining)
			}
			if got := tl.Status(today); got != tt.status {
				t.Errorf("status = %s, want %s", got, tt.status)
			}
		})
	}
}

func TestResolvePlanTimeline(t *testing.T) {
	today := day("2024-03-21")

	tests := []struct {
		name  string
		plan  PlanAssignment
		start string
		end   string
		total *int
	}{
		{
			name:  "explicit fields and day count",
			plan:  PlanAssignment{StartDate: "01-03-2024", EndDate: "05-03-2024", TotalDays: floatPtr(5)},
			start: "01-03-2024",
			end:   "05-03-2024",
			total: intPtr(5),
		},
		{
			name:  "embedded day keys as fallback",
			plan:  PlanAssignment{EmbeddedDayKeys: []string{"03-03-2024", "01-03-2024", "bogus", "2024-03-02"}},
			start: "01-03-2024",
			end:   "03-03-2024",
			total: intPtr(3),
		},
		{
			name:  "duplicate keys count once",
			plan:  PlanAssignment{EmbeddedDayKeys: []string{"01-03-2024", "2024-03-01"}},
			start: "01-03-2024",
			end:   "01-03-2024",
			total: intPtr(1),
		},
		{
			name:  "explicit start beats day keys, end falls back",
			plan:  PlanAssignment{StartDate: "2024-02-28", EmbeddedDayKeys: []string{"01-03-2024", "10-03-2024"}},
			start: "28-02-2024",
			end:   "10-03-2024",
			total: intPtr(2),
		},
		{
			name: "no keys and no count",
			plan: PlanAssignment{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := ResolvePlanTimeline(tt.plan, today)
			if got := FormatDisplay(tl.Start); got != tt.start {
				t.Errorf("start = %q, want %q", got, tt.start)
			}
			if got := FormatDisplay(tl.End); got != tt.end {
				t.Errorf("end = %q, want %q", got, tt.end)
			}
			switch {
			case tt.total == nil && tl.TotalDays != nil:
				t.Errorf("total = %d, want unknown", *tl.TotalDays)
			case tt.total != nil && (tl.TotalDays == nil || *tl.TotalDays != *tt.total):
				t.Errorf("total = %v, want %d", tl.TotalDays, *tt.total)
			}
		})
	}
}

func TestResolveTimelineIsDeterministic(t *testing.T) {
	today := day("2024-03-21")
	sub := Subscription{History: []Period{
		{StartDate: "2024-01-01", EndDate: "2024-06-30"},
		{StartDate: "2023-01-01", EndDate: "2023-12-31"},
	}}
	first := ResolveSubscriptionTimeline(sub, today)
	for i := 0; i < 5; i++ {
		again := ResolveSubscriptionTimeline(sub, today)
		if !again.Start.Equal(first.Start) || !again.End.Equal(first.End) {
			t.Fatalf("resolution changed between calls: %+v vs %+v", first, again)
		}
	}
}

func TestTimelineStatusUnknownWithoutEnd(t *testing.T) {
	tl := Timeline{Start: day("2024-01-01")}
	if got := tl.Status(time.Now()); got != StatusUnknown {
		t.Errorf("expected unknown, got %s", got)
	}
}
