package internal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves canned analysis per day. A day listed in gates blocks
// until its channel is closed.
type fakeSource struct {
	mu       sync.Mutex
	days     map[string]AnalysisResponse
	gates    map[string]chan struct{}
	fetchErr error
	editErr  error
	entryErr error
	edits    []EditData
	entries  []NewEntryRequest
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		days:  make(map[string]AnalysisResponse),
		gates: make(map[string]chan struct{}),
	}
}

func (f *fakeSource) FetchAnalysis(ctx context.Context, _ string, date time.Time) (AnalysisResponse, error) {
	f.mu.Lock()
	gate := f.gates[DayKey(date)]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return AnalysisResponse{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return AnalysisResponse{}, f.fetchErr
	}
	return f.days[DayKey(date)], nil
}

func (f *fakeSource) SubmitEdit(_ context.Context, _ string, data EditData) (EditEntryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return EditEntryResponse{}, f.editErr
	}
	f.edits = append(f.edits, data)
	return EditEntryResponse{Data: data}, nil
}

func (f *fakeSource) SubmitEntry(_ context.Context, req NewEntryRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.entryErr != nil {
		return f.entryErr
	}
	f.entries = append(f.entries, req)
	key := req.Date
	resp := f.days[key]
	resp.Calories += req.Data.Calories
	resp.History = append(resp.History, WireHistoryEntry{
		ID:     req.ID,
		Type:   string(req.Type),
		Macros: WireMacros{Calories: req.Data.Calories},
	})
	f.days[key] = resp
	return nil
}

func sampleDay(calories float64, entries ...WireHistoryEntry) AnalysisResponse {
	return AnalysisResponse{Calories: FlexNumber(calories), History: entries}
}

func food(id string, calories float64) WireHistoryEntry {
	return WireHistoryEntry{ID: id, Type: string(EntryFood), Macros: WireMacros{Calories: FlexNumber(calories)}, Reference: id}
}

func TestDaySessionSelectDate(t *testing.T) {
	src := newFakeSource()
	src.days["2024-03-21"] = sampleDay(500, food("e1", 100), food("e2", 400))

	s := NewDaySession(src, "c1")
	require.NoError(t, s.SelectDate(context.Background(), day("2024-03-21")))

	v := s.View()
	require.NotNil(t, v.Summary)
	assert.Equal(t, 500.0, v.Summary.Macros.Calories)
	assert.Len(t, v.History, 2)
	assert.NotEmpty(t, v.SessionID)
	assert.Equal(t, "2024-03-21", DayKey(v.Date))
}

func TestDaySessionDiscardsStaleResponse(t *testing.T) {
	src := newFakeSource()
	src.days["2024-03-20"] = sampleDay(111)
	src.days["2024-03-21"] = sampleDay(222)
	gate := make(chan struct{})
	src.gates["2024-03-20"] = gate

	s := NewDaySession(src, "c1")
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() {
		slow <- s.SelectDate(ctx, day("2024-03-20"))
	}()

	// wait until the slow request has taken its token
	require.Eventually(t, func() bool {
		return SameDay(s.View().Date, day("2024-03-20"))
	}, time.Second, time.Millisecond)

	require.NoError(t, s.SelectDate(ctx, day("2024-03-21")))
	close(gate)

	err := <-slow
	assert.ErrorIs(t, err, ErrStaleResponse)

	v := s.View()
	require.NotNil(t, v.Summary)
	assert.Equal(t, 222.0, v.Summary.Macros.Calories, "late response for the old date must not overwrite")
	assert.Equal(t, "2024-03-21", DayKey(v.Date))
}

func TestDaySessionFetchFailureClears(t *testing.T) {
	src := newFakeSource()
	src.days["2024-03-21"] = sampleDay(500, food("e1", 500))

	s := NewDaySession(src, "c1")
	ctx := context.Background()
	require.NoError(t, s.SelectDate(ctx, day("2024-03-21")))

	src.mu.Lock()
	src.fetchErr = errors.New("connection refused")
	src.mu.Unlock()

	err := s.Refresh(ctx)
	require.Error(t, err)

	v := s.View()
	assert.Nil(t, v.Summary, "a failed fetch must not keep stale data")
	assert.NotNil(t, v.History)
	assert.Empty(t, v.History)
}

func TestDaySessionEdit(t *testing.T) {
	src := newFakeSource()
	src.days["2024-03-21"] = sampleDay(500, food("e1", 100), food("e2", 400))

	s := NewDaySession(src, "c1")
	ctx := context.Background()
	require.NoError(t, s.SelectDate(ctx, day("2024-03-21")))

	base := s.EditVersion("e1")
	require.NoError(t, s.SubmitEdit(ctx, "e1", base, EditData{Name: "Oats", Calories: 150}))

	v := s.View()
	assert.Equal(t, 550.0, v.Summary.Macros.Calories)
	assert.Equal(t, 150.0, v.History[0].Macros.Calories)
	assert.Equal(t, 1, v.Edits)

	// a refetch of the same day reapplies the edit once
	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, 550.0, s.View().Summary.Macros.Calories)
	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, 550.0, s.View().Summary.Macros.Calories)

	// editing again from the new version keeps moving by the displayed difference
	require.NoError(t, s.SubmitEdit(ctx, "e1", s.EditVersion("e1"), EditData{Calories: 120}))
	assert.Equal(t, 520.0, s.View().Summary.Macros.Calories)
	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, 520.0, s.View().Summary.Macros.Calories)
}

func TestDaySessionRejectsStaleEdit(t *testing.T) {
	src := newFakeSource()
	src.days["2024-03-21"] = sampleDay(500, food("e1", 100))

	s := NewDaySession(src, "c1")
	ctx := context.Background()
	require.NoError(t, s.SelectDate(ctx, day("2024-03-21")))

	base := s.EditVersion("e1")
	require.NoError(t, s.SubmitEdit(ctx, "e1", base, EditData{Calories: 150}))

	err := s.SubmitEdit(ctx, "e1", base, EditData{Calories: 90})
	assert.ErrorIs(t, err, ErrStaleEdit)
	assert.Equal(t, 550.0, s.View().Summary.Macros.Calories)
	assert.Len(t, src.edits, 1, "a stale edit must not reach the backend")
}

func TestDaySessionEditFailureLeavesView(t *testing.T) {
	src := newFakeSource()
	src.days["2024-03-21"] = sampleDay(500, food("e1", 100))
	src.editErr = errors.New("500")

	s := NewDaySession(src, "c1")
	ctx := context.Background()
	require.NoError(t, s.SelectDate(ctx, day("2024-03-21")))

	require.Error(t, s.SubmitEdit(ctx, "e1", 0, EditData{Calories: 150}))
	v := s.View()
	assert.Equal(t, 500.0, v.Summary.Macros.Calories)
	assert.Equal(t, 0, v.Edits)
}

func TestDaySessionDateChangeDropsEdits(t *testing.T) {
	src := newFakeSource()
	src.days["2024-03-21"] = sampleDay(500, food("e1", 100))
	src.days["2024-03-22"] = sampleDay(300, food("e1", 100))

	s := NewDaySession(src, "c1")
	ctx := context.Background()
	require.NoError(t, s.SelectDate(ctx, day("2024-03-21")))
	require.NoError(t, s.SubmitEdit(ctx, "e1", 0, EditData{Calories: 150}))

	require.NoError(t, s.SelectDate(ctx, day("2024-03-22")))
	v := s.View()
	assert.Equal(t, 0, v.Edits)
	assert.Equal(t, 300.0, v.Summary.Macros.Calories)

	require.NoError(t, s.SelectDate(ctx, day("2024-03-21")))
	assert.Equal(t, 500.0, s.View().Summary.Macros.Calories)
}

func TestDaySessionSubmitEntry(t *testing.T) {
	src := newFakeSource()
	src.days["2024-03-21"] = sampleDay(500, food("e1", 500))

	s := NewDaySession(src, "c1")
	ctx := context.Background()
	require.NoError(t, s.SelectDate(ctx, day("2024-03-21")))

	require.NoError(t, s.SubmitEntry(ctx, NewEntryRequest{Type: EntryFood, Data: EditData{Name: "Apple", Calories: 80}}))

	require.Len(t, src.entries, 1)
	req := src.entries[0]
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "c1", req.ClientID)
	assert.Equal(t, "2024-03-21", req.Date)

	v := s.View()
	assert.Equal(t, 580.0, v.Summary.Macros.Calories)
	assert.Len(t, v.History, 2)
}

func TestDaySessionSubmitEntryFailure(t *testing.T) {
	src := newFakeSource()
	src.days["2024-03-21"] = sampleDay(500)
	src.entryErr = errors.New("rejected")

	s := NewDaySession(src, "c1")
	ctx := context.Background()
	require.NoError(t, s.SelectDate(ctx, day("2024-03-21")))

	require.Error(t, s.SubmitEntry(ctx, NewEntryRequest{Type: EntryFood}))
	assert.Equal(t, 500.0, s.View().Summary.Macros.Calories)
}

func TestDaySessionNoActiveDate(t *testing.T) {
	s := NewDaySession(newFakeSource(), "c1")
	ctx := context.Background()

	assert.ErrorIs(t, s.Refresh(ctx), ErrNoActiveDate)
	assert.ErrorIs(t, s.SubmitEdit(ctx, "e1", 0, EditData{}), ErrNoActiveDate)
	assert.ErrorIs(t, s.SubmitEntry(ctx, NewEntryRequest{}), ErrNoActiveDate)
	_, err := s.Replay(ctx, nil)
	assert.ErrorIs(t, err, ErrNoActiveDate)
}

func TestDaySessionReset(t *testing.T) {
	src := newFakeSource()
	src.days["2024-03-21"] = sampleDay(500, food("e1", 100))

	s := NewDaySession(src, "c1")
	ctx := context.Background()
	require.NoError(t, s.SelectDate(ctx, day("2024-03-21")))
	require.NoError(t, s.SubmitEdit(ctx, "e1", 0, EditData{Calories: 150}))
	before := s.ID()

	s.Reset()

	v := s.View()
	assert.NotEqual(t, before, v.SessionID)
	assert.True(t, v.Date.IsZero())
	assert.Nil(t, v.Summary)
	assert.Equal(t, 0, v.Edits)
}

func TestDaySessionReplay(t *testing.T) {
	src := newFakeSource()
	src.days["2024-03-21"] = sampleDay(500, food("e1", 100), food("e2", 400))

	s := NewDaySession(src, "c1", WithClock(func() time.Time { return day("2024-03-21") }))
	ctx := context.Background()
	require.NoError(t, s.SelectDate(ctx, day("2024-03-21")))

	applied, err := s.Replay(ctx, []RecordedEdit{
		{EntryID: "e1", Date: "21-03-2024", Data: EditData{Calories: 150}},
		{EntryID: "e2", Date: "22-03-2024", Data: EditData{Calories: 1}},
		{EntryID: "e1", Date: "2024-03-21", Data: EditData{Calories: 200}},
		{EntryID: "e1", Date: "2024-03-21", Version: 1, Data: EditData{Calories: 999}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, applied, "the other day's edit and the stale one are skipped")
	assert.Equal(t, 600.0, s.View().Summary.Macros.Calories)
}
