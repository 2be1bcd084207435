package internal

import (
	"time"

	"github.com/samber/lo"
)

// maxGapWindowDays bounds the expected window of a single plan to ten years.
const maxGapWindowDays = 3660

// FindMissingDates returns, in ascending order, every day of the window
// [start, start+totalDays) that is not in recorded.
// Without a start anchor, a positive day count and at least one recorded day
// there is nothing to compare against, so no gaps are reported.
// Windows longer than maxGapWindowDays are truncated.
func FindMissingDates(start time.Time, recorded []time.Time, totalDays int) []time.Time {
	if start.IsZero() || totalDays <= 0 || len(recorded) == 0 {
		return nil
	}
	totalDays = min(totalDays, maxGapWindowDays)

	present := make(map[string]struct{}, len(recorded))
	for _, d := range recorded {
		present[DayKey(d)] = struct{}{}
	}

	anchor := Midnight(start)
	var missing []time.Time
	for i := 0; i < totalDays; i++ {
		day := anchor.AddDate(0, 0, i)
		if _, ok := present[DayKey(day)]; !ok {
			missing = append(missing, day)
		}
	}
	return missing
}

// PlanGap is the gap report for one plan assignment.
type PlanGap struct {
	Assignment   PlanAssignment
	Timeline     Timeline
	Recorded     int
	MissingDates []string // dd-MM-yyyy
}

// PlanGaps resolves the plan's timeline and lists the days missing from its content.
func PlanGaps(p PlanAssignment, today time.Time) PlanGap {
	tl := ResolvePlanTimeline(p, today)
	recorded := parseDayKeys(p.EmbeddedDayKeys)

	total := 0
	if tl.TotalDays != nil {
		total = *tl.TotalDays
	}

	missing := FindMissingDates(tl.Start, recorded, total)
	return PlanGap{
		Assignment: p,
		Timeline:   tl,
		Recorded:   len(recorded),
		MissingDates: lo.Map(missing, func(d time.Time, _ int) string {
			return FormatDisplay(d)
		}),
	}
}
