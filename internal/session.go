package internal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrStaleResponse is returned when a response arrives for a date that is no longer active.
	ErrStaleResponse = errors.New("stale response")
	// ErrNoActiveDate is returned when an operation needs a selected date.
	ErrNoActiveDate = errors.New("no active date")
)

// AnalysisSource is the backend the session talks to.
type AnalysisSource interface {
	FetchAnalysis(ctx context.Context, clientID string, date time.Time) (AnalysisResponse, error)
	SubmitEdit(ctx context.Context, entryID string, data EditData) (EditEntryResponse, error)
	SubmitEntry(ctx context.Context, req NewEntryRequest) error
}

// DayView is a copy of what the session currently displays.
// Summary is nil while nothing valid is loaded.
type DayView struct {
	SessionID string
	Date      time.Time
	Summary   *DailySummary
	History   []LogEntry
	Edits     int
}

// DaySession tracks one client's daily log view: the active date, the fetched
// baseline and the in-session edits layered on top of it.
//
// Every fetch is tagged with a token; a response whose token is no longer the
// latest is dropped, so a slow answer for an old date never overwrites a newer one.
type DaySession struct {
	mu       sync.Mutex
	source   AnalysisSource
	log      zerolog.Logger
	clientID string
	now      func() time.Time

	id      string
	token   uint64
	active  time.Time
	fetched []LogEntry
	summary *DailySummary
	history []LogEntry
	cache   *EditCache
}

// SessionOption configures a DaySession.
type SessionOption func(*DaySession)

// WithLogger sets the session logger. The default discards.
func WithLogger(l zerolog.Logger) SessionOption {
	return func(s *DaySession) { s.log = l }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *DaySession) { s.now = now }
}

// NewDaySession creates a session for clientID backed by source.
func NewDaySession(source AnalysisSource, clientID string, opts ...SessionOption) *DaySession {
	s := &DaySession{
		source:   source,
		clientID: clientID,
		log:      zerolog.Nop(),
		now:      time.Now,
		id:       uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = NewEditCache(s.id, time.Time{})
	return s
}

// ID returns the session identity. It changes on Reset.
func (s *DaySession) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// SelectDate makes date the active day and fetches its analysis.
// Edits survive a refetch of the same day and are dropped when the day changes.
// A fetch failure clears the view instead of keeping the previous day's data.
func (s *DaySession) SelectDate(ctx context.Context, date time.Time) error {
	day := Midnight(date)

	s.mu.Lock()
	s.token++
	token := s.token
	if !SameDay(s.active, day) {
		s.clearLocked()
	}
	s.active = day
	if s.cache.Bind(s.id, day) {
		s.log.Debug().Str("date", DayKey(day)).Msg("edit cache cleared for new date")
	}
	s.mu.Unlock()

	resp, err := s.source.FetchAnalysis(ctx, s.clientID, day)

	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.token {
		s.log.Debug().
			Str("date", DayKey(day)).
			Uint64("token", token).
			Uint64("current", s.token).
			Msg("discarding stale analysis response")
		return ErrStaleResponse
	}

	if err != nil {
		s.clearLocked()
		s.log.Warn().Err(err).Str("date", DayKey(day)).Msg("analysis fetch failed")
		return fmt.Errorf("fetching analysis for %s: %w", DayKey(day), err)
	}

	baseline := resp.Summary(day)
	s.fetched = resp.Entries()
	r := Reconcile(baseline, s.fetched, s.cache)
	s.summary = &r.Summary
	s.history = r.History
	return nil
}

// Refresh refetches the active date.
func (s *DaySession) Refresh(ctx context.Context) error {
	s.mu.Lock()
	day := s.active
	s.mu.Unlock()
	if day.IsZero() {
		return ErrNoActiveDate
	}
	return s.SelectDate(ctx, day)
}

// EditVersion returns the version an edit form for entryID should be opened with.
func (s *DaySession) EditVersion(entryID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Version(entryID)
}

// SubmitEdit sends an edit of entryID that was started from baseVersion.
// If another edit of the same entry landed in between, the edit is rejected
// with ErrStaleEdit. On success the summary moves by the difference between the
// edited and the previously displayed macros. Failures leave the view untouched.
func (s *DaySession) SubmitEdit(ctx context.Context, entryID string, baseVersion int64, data EditData) error {
	s.mu.Lock()
	day := s.active
	sessionID := s.id
	if day.IsZero() {
		s.mu.Unlock()
		return ErrNoActiveDate
	}
	if cur := s.cache.Version(entryID); cur != baseVersion {
		s.mu.Unlock()
		s.log.Warn().Str("entry", entryID).Int64("base", baseVersion).Int64("current", cur).Msg("rejecting stale edit")
		return fmt.Errorf("%w: entry %s was edited since version %d", ErrStaleEdit, entryID, baseVersion)
	}
	s.mu.Unlock()

	resp, err := s.source.SubmitEdit(ctx, entryID, data)
	if err != nil {
		return fmt.Errorf("submitting edit for entry %s: %w", entryID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id != sessionID || !SameDay(s.active, day) {
		s.log.Debug().Str("entry", entryID).Str("date", DayKey(day)).Msg("discarding edit for inactive date")
		return ErrStaleResponse
	}

	snap := resp.Data.Snapshot(baseVersion+1, s.now())
	if err := s.cache.Put(entryID, snap); err != nil {
		s.log.Warn().Err(err).Str("entry", entryID).Msg("rejecting stale edit")
		return err
	}

	for i := range s.history {
		if s.history[i].ID != entryID {
			continue
		}
		if s.summary != nil {
			updated := s.summary.ApplyEdit(s.history[i].Macros, snap.Macros)
			s.summary = &updated
		}
		s.history[i].Macros = snap.Macros
		if snap.Reference != "" {
			s.history[i].Reference = snap.Reference
		}
		break
	}
	return nil
}

// Replay submits the recorded edits that fall on the active date, in order.
// An edit without a version is applied on top of the current one. Stale edits
// are skipped; any other failure stops the replay.
func (s *DaySession) Replay(ctx context.Context, edits []RecordedEdit) (applied int, err error) {
	s.mu.Lock()
	day := s.active
	s.mu.Unlock()
	if day.IsZero() {
		return 0, ErrNoActiveDate
	}

	for _, e := range edits {
		if d, ok := NormalizeString(e.Date); !ok || !SameDay(d, day) {
			continue
		}
		base := e.Version
		if base == 0 {
			base = s.EditVersion(e.EntryID)
		}
		err := s.SubmitEdit(ctx, e.EntryID, base, e.Data)
		switch {
		case err == nil:
			applied++
		case errors.Is(err, ErrStaleEdit):
			continue
		default:
			return applied, err
		}
	}
	return applied, nil
}

// SubmitEntry logs a new entry on the active date and refetches the day.
// On failure nothing displayed changes.
func (s *DaySession) SubmitEntry(ctx context.Context, req NewEntryRequest) error {
	s.mu.Lock()
	day := s.active
	s.mu.Unlock()
	if day.IsZero() {
		return ErrNoActiveDate
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.ClientID = s.clientID
	req.Date = DayKey(day)

	if err := s.source.SubmitEntry(ctx, req); err != nil {
		return fmt.Errorf("submitting %s entry: %w", req.Type, err)
	}
	return s.Refresh(ctx)
}

// Reset starts a new session: a new identity, no active date and no edits.
func (s *DaySession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = uuid.NewString()
	s.token++
	s.active = time.Time{}
	s.clearLocked()
	s.cache.Bind(s.id, time.Time{})
}

// View returns a copy of the displayed state.
func (s *DaySession) View() DayView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := DayView{
		SessionID: s.id,
		Date:      s.active,
		History:   make([]LogEntry, len(s.history)),
		Edits:     s.cache.Len(),
	}
	copy(v.History, s.history)
	if s.summary != nil {
		sum := *s.summary
		v.Summary = &sum
	}
	return v
}

func (s *DaySession) clearLocked() {
	s.fetched = nil
	s.summary = nil
	s.history = []LogEntry{}
}
