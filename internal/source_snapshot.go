package internal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SnapshotSource serves a Dataset's recorded analysis as if it were the backend.
// Edits are echoed back as confirmed. New entries are appended to the day and
// counted into its totals, the way the backend re-sums after an insert.
type SnapshotSource struct {
	mu sync.Mutex
	ds *Dataset
}

// NewSnapshotSource wraps ds. The dataset's analysis map is modified by SubmitEntry.
func NewSnapshotSource(ds *Dataset) *SnapshotSource {
	if ds.Analysis == nil {
		ds.Analysis = make(map[string]AnalysisResponse)
	}
	return &SnapshotSource{ds: ds}
}

func (s *SnapshotSource) FetchAnalysis(_ context.Context, _ string, date time.Time) (AnalysisResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.ds.Analysis[DayKey(date)]
	if !ok {
		return AnalysisResponse{}, fmt.Errorf("no analysis recorded for %s", DayKey(date))
	}
	history := make([]WireHistoryEntry, len(resp.History))
	copy(history, resp.History)
	resp.History = history
	return resp, nil
}

func (s *SnapshotSource) SubmitEdit(_ context.Context, _ string, data EditData) (EditEntryResponse, error) {
	return EditEntryResponse{Data: data}, nil
}

func (s *SnapshotSource) SubmitEntry(_ context.Context, req NewEntryRequest) error {
	day, ok := NormalizeString(req.Date)
	if !ok {
		return fmt.Errorf("invalid entry date %q", req.Date)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := DayKey(day)
	resp := s.ds.Analysis[key]
	resp.Calories += req.Data.Calories
	resp.Protein += req.Data.Protein
	resp.Carbohydrates += req.Data.Carbohydrates
	resp.Fats += req.Data.Fats
	resp.History = append(resp.History, WireHistoryEntry{
		ID:       req.ID,
		Type:     string(req.Type),
		Question: req.Question,
		Date:     FlexString(key),
		Macros: WireMacros{
			Calories:      req.Data.Calories,
			Protein:       req.Data.Protein,
			Carbohydrates: req.Data.Carbohydrates,
			Fats:          req.Data.Fats,
		},
		Reference: req.Data.Name,
	})
	s.ds.Analysis[key] = resp
	return nil
}
