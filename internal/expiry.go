package internal

import (
	"fmt"
	"time"
)

// PlanExpiry is one plan with its resolved end and enrolled clients.
type PlanExpiry struct {
	PlanID      string
	ResolvedEnd time.Time // zero when unknown
	AssignedAt  time.Time // zero when unknown
	Clients     []Client
}

// ClientExpiry is the retained expiry for a client.
type ClientExpiry struct {
	Client     Client
	PlanID     string
	Expiry     time.Time // zero when unknown
	AssignedAt time.Time
}

// ExpiryTieBreak reports whether candidate should replace current when a client
// is enrolled in more than one plan.
type ExpiryTieBreak func(current, candidate ClientExpiry) bool

// SoonestExpiry keeps the earliest known expiry. A known expiry beats an unknown one.
func SoonestExpiry(current, candidate ClientExpiry) bool {
	if candidate.Expiry.IsZero() {
		return false
	}
	return current.Expiry.IsZero() || candidate.Expiry.Before(current.Expiry)
}

// LatestExpiry keeps the furthest known expiry. A known expiry beats an unknown one.
func LatestExpiry(current, candidate ClientExpiry) bool {
	if candidate.Expiry.IsZero() {
		return false
	}
	return current.Expiry.IsZero() || candidate.Expiry.After(current.Expiry)
}

// LastAssigned keeps the most recently assigned plan. Equal or unknown assignment
// times fall back to iteration order, with the later plan winning.
func LastAssigned(current, candidate ClientExpiry) bool {
	if current.AssignedAt.IsZero() || candidate.AssignedAt.IsZero() {
		return true
	}
	return !candidate.AssignedAt.Before(current.AssignedAt)
}

// TieBreakByName maps config names to tie-break policies.
func TieBreakByName(name string) (ExpiryTieBreak, error) {
	switch name {
	case "", "soonest":
		return SoonestExpiry, nil
	case "latest":
		return LatestExpiry, nil
	case "last-assigned":
		return LastAssigned, nil
	default:
		return nil, fmt.Errorf("unknown expiry tie-break %q (available: soonest, latest, last-assigned)", name)
	}
}

// ResolveClientExpiries flattens plans into (client, plan) pairs and keeps one
// expiry per client, chosen by tieBreak. Clients appear once, in first-seen order.
func ResolveClientExpiries(plans []PlanExpiry, tieBreak ExpiryTieBreak) []ClientExpiry {
	if tieBreak == nil {
		tieBreak = SoonestExpiry
	}

	byClient := make(map[string]ClientExpiry)
	var order []string

	for _, plan := range plans {
		for _, client := range plan.Clients {
			candidate := ClientExpiry{
				Client:     client,
				PlanID:     plan.PlanID,
				Expiry:     plan.ResolvedEnd,
				AssignedAt: plan.AssignedAt,
			}
			key := client.Key()
			current, seen := byClient[key]
			if !seen {
				order = append(order, key)
				byClient[key] = candidate
				continue
			}
			if tieBreak(current, candidate) {
				byClient[key] = candidate
			}
		}
	}

	result := make([]ClientExpiry, 0, len(order))
	for _, key := range order {
		result = append(result, byClient[key])
	}
	return result
}

// PlanExpiries resolves each plan's end date for aggregation.
func PlanExpiries(plans []Plan, today time.Time) []PlanExpiry {
	result := make([]PlanExpiry, 0, len(plans))
	for _, p := range plans {
		tl := ResolvePlanTimeline(p.PlanAssignment, today)
		assigned, _ := NormalizeString(p.AssignedAt)
		result = append(result, PlanExpiry{
			PlanID:      p.PlanID,
			ResolvedEnd: tl.End,
			AssignedAt:  assigned,
			Clients:     p.Clients,
		})
	}
	return result
}

// ExpiringWithin keeps expiries that end between today and today+days, inclusive.
// Already expired and unknown expiries are dropped. days <= 0 disables the filter.
func ExpiringWithin(expiries []ClientExpiry, today time.Time, days int) []ClientExpiry {
	if days <= 0 {
		return expiries
	}
	var result []ClientExpiry
	for _, e := range expiries {
		if e.Expiry.IsZero() {
			continue
		}
		remaining := DaysBetween(today, e.Expiry)
		if remaining >= 0 && remaining <= days {
			result = append(result, e)
		}
	}
	return result
}
