package internal

import (
	"math"
	"sort"
	"time"
)

// TimelineFacts is the entity-independent view the resolver works on.
// Explicit start/end candidates are listed in precedence order.
type TimelineFacts struct {
	StartCandidates []string
	EndCandidates   []string
	History         []Period
	TotalDays       *float64
}

// SubscriptionFacts encodes the date precedence for subscriptions:
// validFrom/validTill, then history.
func SubscriptionFacts(s Subscription) TimelineFacts {
	return TimelineFacts{
		StartCandidates: []string{s.ValidFrom},
		EndCandidates:   []string{s.ValidTill},
		History:         s.History,
	}
}

// PlanFacts encodes the date precedence for plan assignments:
// startDate/endDate and the explicit day count. Plans carry no history.
func PlanFacts(p PlanAssignment) TimelineFacts {
	return TimelineFacts{
		StartCandidates: []string{p.StartDate},
		EndCandidates:   []string{p.EndDate},
		TotalDays:       p.TotalDays,
	}
}

// ResolveSubscriptionTimeline resolves a subscription against today.
func ResolveSubscriptionTimeline(s Subscription, today time.Time) Timeline {
	return ResolveTimeline(SubscriptionFacts(s), nil, today)
}

// ResolvePlanTimeline resolves a plan assignment, falling back to its embedded day keys.
func ResolvePlanTimeline(p PlanAssignment, today time.Time) Timeline {
	return ResolveTimeline(PlanFacts(p), p.EmbeddedDayKeys, today)
}

// ResolveTimeline resolves start and end independently, each with the precedence
// explicit field > most recent history entry (by end date) > sorted fallback keys.
// RemainingDays is only set when End resolved; it is negative once expired.
func ResolveTimeline(f TimelineFacts, fallbackKeys []string, today time.Time) Timeline {
	var tl Timeline

	recent, hasRecent := mostRecentPeriod(f.History)
	keys := parseDayKeys(fallbackKeys)

	if start, ok := firstParsed(f.StartCandidates); ok {
		tl.Start = start
	} else if start, ok := NormalizeString(recent.StartDate); hasRecent && ok {
		tl.Start = start
	} else if len(keys) > 0 {
		tl.Start = keys[0]
	}

	if end, ok := firstParsed(f.EndCandidates); ok {
		tl.End = end
	} else if end, ok := NormalizeString(recent.EndDate); hasRecent && ok {
		tl.End = end
	} else if len(keys) > 0 {
		tl.End = keys[len(keys)-1]
	}

	if f.TotalDays != nil && !math.IsNaN(*f.TotalDays) && !math.IsInf(*f.TotalDays, 0) {
		n := int(max(min(*f.TotalDays, math.MaxInt32), math.MinInt32))
		tl.TotalDays = &n
	} else if len(keys) > 0 {
		n := len(keys)
		tl.TotalDays = &n
	}

	if !tl.End.IsZero() {
		remaining := DaysBetween(today, tl.End)
		tl.RemainingDays = &remaining
	}

	return tl
}

// Status classifies the timeline relative to today.
func (tl Timeline) Status(today time.Time) TimelineStatus {
	switch {
	case tl.End.IsZero():
		return StatusUnknown
	case tl.End.Before(Midnight(today)):
		return StatusExpired
	case !tl.Start.IsZero() && tl.Start.After(Midnight(today)):
		return StatusUpcoming
	default:
		return StatusActive
	}
}

func firstParsed(candidates []string) (time.Time, bool) {
	for _, c := range candidates {
		if t, ok := NormalizeString(c); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// mostRecentPeriod picks the history entry with the latest parseable end date.
// Entries without one cannot be ranked and are skipped.
func mostRecentPeriod(history []Period) (Period, bool) {
	var best Period
	var bestEnd time.Time
	found := false
	for _, p := range history {
		end, ok := NormalizeString(p.EndDate)
		if !ok {
			continue
		}
		if !found || end.After(bestEnd) {
			best, bestEnd, found = p, end, true
		}
	}
	return best, found
}

// parseDayKeys returns the distinct parseable keys in ascending order.
func parseDayKeys(keys []string) []time.Time {
	seen := make(map[string]bool, len(keys))
	var days []time.Time
	for _, k := range keys {
		d, ok := NormalizeString(k)
		if !ok || seen[DayKey(d)] {
			continue
		}
		seen[DayKey(d)] = true
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Before(days[j])
	})
	return days
}
