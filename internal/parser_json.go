package internal

import (
	"encoding/json"
	"fmt"
	"os"
)

// SnapshotFormat is a dump of the dashboard's listing and analysis endpoints.
// Example:
//
//	{
//	  "clients": [{"_id": "c1", "name": "Asha", "dob": "15-06"}],
//	  "plans": [{"_id": "p1", "name": "Cut", "start_date": "01-01-2024",
//	             "total_days": 5, "days": {"01-01-2024": {}}, "clients": [{"_id": "c1"}]}],
//	  "subscriptions": [{"client_id": "c1", "validTill": "2024-12-31"}],
//	  "analysis": {"2024-03-21": {"calories": 500, "history": []}},
//	  "edits": [{"entry_id": "e1", "date": "2024-03-21", "data": {"calories": "150 kcal"}}]
//	}
type SnapshotFormat struct {
	Clients       []WireClient                `json:"clients"`
	Plans         []WirePlan                  `json:"plans"`
	Subscriptions []WireSubscription          `json:"subscriptions"`
	Analysis      map[string]AnalysisResponse `json:"analysis"`
	Edits         []RecordedEdit              `json:"edits"`
}

// ParseSnapshotJSON reads a dashboard snapshot file
func ParseSnapshotJSON(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	var snap SnapshotFormat
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	ds := &Dataset{
		Analysis: make(map[string]AnalysisResponse, len(snap.Analysis)),
		Edits:    snap.Edits,
	}
	for _, c := range snap.Clients {
		ds.Clients = append(ds.Clients, c.Client())
	}
	for _, p := range snap.Plans {
		ds.Plans = append(ds.Plans, p.Plan())
	}
	for _, s := range snap.Subscriptions {
		ds.Subscriptions = append(ds.Subscriptions, s.Subscription())
	}
	for key, resp := range snap.Analysis {
		day, ok := NormalizeString(key)
		if !ok {
			return nil, fmt.Errorf("parsing analysis date %q: not a date", key)
		}
		ds.Analysis[DayKey(day)] = resp
	}

	return ds, nil
}

func init() {
	RegisterParser("dashboard-json", ParserFunc(ParseSnapshotJSON))
}
