package internal

import (
	"testing"
	"time"
)

func TestResolveClientExpiries(t *testing.T) {
	asha := Client{ID: "c1", Name: "Asha"}
	ben := Client{ID: "c2", Name: "Ben"}
	cara := Client{ID: "c3", Name: "Cara"}

	plans := []PlanExpiry{
		{PlanID: "long", ResolvedEnd: day("2024-06-30"), AssignedAt: day("2024-01-01"), Clients: []Client{asha, ben}},
		{PlanID: "short", ResolvedEnd: day("2024-04-15"), AssignedAt: day("2024-02-01"), Clients: []Client{asha, cara}},
		{PlanID: "open", AssignedAt: day("2024-03-01"), Clients: []Client{ben}},
	}

	tests := []struct {
		name     string
		tieBreak ExpiryTieBreak
		expected map[string]string // client ID -> plan ID
	}{
		{"soonest", SoonestExpiry, map[string]string{"c1": "short", "c2": "long", "c3": "short"}},
		{"latest", LatestExpiry, map[string]string{"c1": "long", "c2": "long", "c3": "short"}},
		{"last assigned", LastAssigned, map[string]string{"c1": "short", "c2": "open", "c3": "short"}},
		{"nil defaults to soonest", nil, map[string]string{"c1": "short", "c2": "long", "c3": "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveClientExpiries(plans, tt.tieBreak)

			if len(got) != 3 {
				t.Fatalf("expected each client once (3), got %d", len(got))
			}
			order := []string{"c1", "c2", "c3"}
			for i, e := range got {
				if e.Client.ID != order[i] {
					t.Errorf("position %d: expected %s (first-seen order), got %s", i, order[i], e.Client.ID)
				}
				if e.PlanID != tt.expected[e.Client.ID] {
					t.Errorf("%s: expected plan %s, got %s", e.Client.ID, tt.expected[e.Client.ID], e.PlanID)
				}
			}
		})
	}
}

func TestResolveClientExpiriesDuplicateInSamePlan(t *testing.T) {
	c := Client{ID: "c1"}
	got := ResolveClientExpiries([]PlanExpiry{
		{PlanID: "p", ResolvedEnd: day("2024-05-01"), Clients: []Client{c, c}},
	}, SoonestExpiry)
	if len(got) != 1 {
		t.Errorf("expected 1 entry, got %d", len(got))
	}
}

func TestTieBreakByName(t *testing.T) {
	for _, name := range []string{"", "soonest", "latest", "last-assigned"} {
		if _, err := TieBreakByName(name); err != nil {
			t.Errorf("TieBreakByName(%q) unexpected error: %v", name, err)
		}
	}
	if _, err := TieBreakByName("random"); err == nil {
		t.Error("expected error for unknown tie-break")
	}
}

func TestExpiringWithin(t *testing.T) {
	today := day("2024-03-21")
	expiries := []ClientExpiry{
		{PlanID: "expired", Expiry: day("2024-03-20")},
		{PlanID: "today", Expiry: today},
		{PlanID: "edge", Expiry: day("2024-03-31")},
		{PlanID: "far", Expiry: day("2024-06-01")},
		{PlanID: "unknown"},
	}

	got := ExpiringWithin(expiries, today, 10)
	if len(got) != 2 || got[0].PlanID != "today" || got[1].PlanID != "edge" {
		t.Errorf("expected today and edge, got %+v", got)
	}

	if all := ExpiringWithin(expiries, today, 0); len(all) != len(expiries) {
		t.Errorf("expected no filtering with a zero window, got %d", len(all))
	}
}

func TestPlanExpiries(t *testing.T) {
	plans := []Plan{
		{PlanAssignment: PlanAssignment{PlanID: "p1", EmbeddedDayKeys: []string{"2024-03-01", "2024-03-09"}, AssignedAt: "2024-02-01"}},
		{PlanAssignment: PlanAssignment{PlanID: "p2"}},
	}
	got := PlanExpiries(plans, time.Now())

	if FormatDisplay(got[0].ResolvedEnd) != "09-03-2024" {
		t.Errorf("expected end from day keys, got %v", got[0].ResolvedEnd)
	}
	if FormatDisplay(got[0].AssignedAt) != "01-02-2024" {
		t.Errorf("expected assigned date, got %v", got[0].AssignedAt)
	}
	if !got[1].ResolvedEnd.IsZero() {
		t.Errorf("expected unknown end, got %v", got[1].ResolvedEnd)
	}
}
