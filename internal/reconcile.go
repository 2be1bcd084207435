package internal

import (
	"errors"
	"fmt"
	"time"
)

// ErrStaleEdit is returned when an edit is older than the one already cached.
var ErrStaleEdit = errors.New("stale edit")

// EditSnapshot is the last user-confirmed state of an edited log entry.
type EditSnapshot struct {
	Macros      MacroVector
	Reference   string
	ServingSize string
	Version     int64
	EditedAt    time.Time
}

// EditCache holds in-session edits keyed by log entry ID. It belongs to one
// session and one active date; Bind clears it when either changes.
// Callers serialize access (DaySession holds its own lock).
type EditCache struct {
	sessionID string
	date      time.Time
	entries   map[string]EditSnapshot
}

// NewEditCache returns an empty cache bound to sessionID and date.
func NewEditCache(sessionID string, date time.Time) *EditCache {
	return &EditCache{
		sessionID: sessionID,
		date:      Midnight(date),
		entries:   make(map[string]EditSnapshot),
	}
}

// Bind points the cache at a session and date, dropping all edits if either changed.
// It reports whether the cache was cleared.
func (c *EditCache) Bind(sessionID string, date time.Time) bool {
	if c.sessionID == sessionID && SameDay(c.date, date) {
		return false
	}
	c.sessionID = sessionID
	c.date = Midnight(date)
	c.entries = make(map[string]EditSnapshot)
	return true
}

// Put stores snap for id. A snapshot whose version is not newer than the cached
// one is rejected with ErrStaleEdit.
func (c *EditCache) Put(id string, snap EditSnapshot) error {
	if cur, ok := c.entries[id]; ok && snap.Version <= cur.Version {
		return fmt.Errorf("%w: entry %s version %d <= %d", ErrStaleEdit, id, snap.Version, cur.Version)
	}
	c.entries[id] = snap
	return nil
}

// Get returns the cached snapshot for id.
func (c *EditCache) Get(id string) (EditSnapshot, bool) {
	if c == nil {
		return EditSnapshot{}, false
	}
	snap, ok := c.entries[id]
	return snap, ok
}

// Version returns the cached version for id, or 0.
func (c *EditCache) Version(id string) int64 {
	snap, _ := c.Get(id)
	return snap.Version
}

// Len returns the number of cached edits.
func (c *EditCache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Date returns the day the cache is bound to.
func (c *EditCache) Date() time.Time {
	return c.date
}

// Reconciled is the summary and history actually displayed.
type Reconciled struct {
	Summary DailySummary
	History []LogEntry
}

// Reconcile overlays cached edits on a freshly fetched day.
// Each history entry with a cached edit takes the edited macros and reference,
// and the baseline summary moves by (edited - fetched) for those entries.
// Inputs are not mutated, so reconciling the same inputs twice gives the same result.
func Reconcile(baseline DailySummary, fresh []LogEntry, cache *EditCache) Reconciled {
	history := make([]LogEntry, len(fresh))
	copy(history, fresh)

	var delta MacroVector
	for i, entry := range history {
		snap, ok := cache.Get(entry.ID)
		if !ok {
			continue
		}
		delta = delta.Add(snap.Macros.Sub(entry.Macros))
		history[i].Macros = snap.Macros
		if snap.Reference != "" {
			history[i].Reference = snap.Reference
		}
	}

	summary := baseline
	summary.Macros = baseline.Macros.Add(delta)
	return Reconciled{Summary: summary, History: history}
}

// ApplyEdit moves the summary by (next - previous) for a single edited entry.
// It is the incremental counterpart of Reconcile and converges with it.
func (s DailySummary) ApplyEdit(previous, next MacroVector) DailySummary {
	s.Macros = s.Macros.Add(next.Sub(previous))
	return s
}
