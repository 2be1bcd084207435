package internal

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// FlexNumber decodes a JSON number, a unit-suffixed string ("120 kcal") or null.
// Unparseable values decode to 0 instead of failing the whole document.
type FlexNumber float64

func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = 0
			return nil
		}
		*n = FlexNumber(ParseMacroString(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*n = 0
		return nil
	}
	*n = FlexNumber(finiteOrZero(f))
	return nil
}

// FlexString decodes a JSON string, number or null into a string.
// Backend dates sometimes arrive as numbers or null.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	*s = FlexString(string(data))
	return nil
}

// WireMacros is the macros object attached to a history entry.
type WireMacros struct {
	Calories      FlexNumber `json:"calories"`
	Protein       FlexNumber `json:"protein"`
	Carbohydrates FlexNumber `json:"carbohydrates"`
	Fats          FlexNumber `json:"fats"`
}

func (w WireMacros) Vector() MacroVector {
	return MacroVector{
		Calories:      float64(w.Calories),
		Protein:       float64(w.Protein),
		Carbohydrates: float64(w.Carbohydrates),
		Fats:          float64(w.Fats),
	}
}

// WireHistoryEntry is one entry of the analysis-by-date history.
type WireHistoryEntry struct {
	ID        string     `json:"_id"`
	Type      string     `json:"type"`
	Question  string     `json:"question"`
	Date      FlexString `json:"date"`
	Macros    WireMacros `json:"macros"`
	Reference string     `json:"reference"`
}

// AnalysisResponse is the body of GET analysis-by-date.
type AnalysisResponse struct {
	Calories       FlexNumber         `json:"calories"`
	Protein        FlexNumber         `json:"protein"`
	Carbohydrates  FlexNumber         `json:"carbohydrates"`
	Fats           FlexNumber         `json:"fats"`
	CaloriesBurned FlexNumber         `json:"calories_burned"`
	History        []WireHistoryEntry `json:"history"`
}

// Summary converts the response to a baseline summary for date.
func (r AnalysisResponse) Summary(date time.Time) DailySummary {
	return DailySummary{
		Date: Midnight(date),
		Macros: MacroVector{
			Calories:      float64(r.Calories),
			Protein:       float64(r.Protein),
			Carbohydrates: float64(r.Carbohydrates),
			Fats:          float64(r.Fats),
		},
		CaloriesBurned: float64(r.CaloriesBurned),
	}
}

// Entries converts the response history. Timestamps that do not parse stay zero.
func (r AnalysisResponse) Entries() []LogEntry {
	entries := make([]LogEntry, 0, len(r.History))
	for _, h := range r.History {
		entries = append(entries, LogEntry{
			ID:        h.ID,
			Type:      EntryType(h.Type),
			Question:  h.Question,
			Macros:    h.Macros.Vector(),
			Reference: h.Reference,
			Timestamp: parseTimestamp(string(h.Date)),
		})
	}
	return entries
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.DateTime} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	if d, ok := NormalizeString(s); ok {
		return d
	}
	return time.Time{}
}

// EditData is the food payload of an edit-entry request or response.
type EditData struct {
	Name          string     `json:"name"`
	Calories      FlexNumber `json:"calories"`
	Carbohydrates FlexNumber `json:"carbohydrates"`
	Fats          FlexNumber `json:"fats"`
	Protein       FlexNumber `json:"protein"`
	ServingSize   string     `json:"serving_size"`
}

// EditEntryResponse is the body returned by PUT/POST edit-entry.
type EditEntryResponse struct {
	Data EditData `json:"data"`
}

// Snapshot converts the confirmed edit into a cache snapshot.
func (d EditData) Snapshot(version int64, at time.Time) EditSnapshot {
	return EditSnapshot{
		Macros: MacroVector{
			Calories:      float64(d.Calories),
			Protein:       float64(d.Protein),
			Carbohydrates: float64(d.Carbohydrates),
			Fats:          float64(d.Fats),
		},
		Reference:   d.Name,
		ServingSize: d.ServingSize,
		Version:     version,
		EditedAt:    at,
	}
}

// NewEntryRequest is the body of POST log-entry.
type NewEntryRequest struct {
	ID       string    `json:"_id,omitempty"`
	ClientID string    `json:"client_id"`
	Date     string    `json:"date"` // yyyy-MM-dd
	Type     EntryType `json:"type"`
	Question string    `json:"question,omitempty"`
	Data     EditData  `json:"data"`
}

// WireClient accepts the field spellings used across client endpoints.
type WireClient struct {
	ID           FlexString `json:"_id"`
	Name         string     `json:"name"`
	ClientID     FlexString `json:"client_id"`
	ClientIDAlt  FlexString `json:"clientId"`
	MobileNumber FlexString `json:"mobile_number"`
	MobileAlt    FlexString `json:"mobileNumber"`
	ProfilePhoto string     `json:"profile_photo"`
	PhotoAlt     string     `json:"profilePhoto"`
	DOB          string     `json:"dob"`
	DOBAlt       string     `json:"dobFragment"`
}

func (w WireClient) Client() Client {
	return Client{
		ID:           string(w.ID),
		Name:         w.Name,
		ClientID:     firstNonEmpty(string(w.ClientID), string(w.ClientIDAlt)),
		MobileNumber: firstNonEmpty(string(w.MobileNumber), string(w.MobileAlt)),
		ProfilePhoto: firstNonEmpty(w.ProfilePhoto, w.PhotoAlt),
		DOBFragment:  firstNonEmpty(w.DOB, w.DOBAlt),
	}
}

// WirePeriod is one subscription history entry.
type WirePeriod struct {
	StartDate    FlexString `json:"start_date"`
	StartDateAlt FlexString `json:"startDate"`
	EndDate      FlexString `json:"end_date"`
	EndDateAlt   FlexString `json:"endDate"`
}

// WireSubscription folds the validFrom/valid_from/start_date spellings.
type WireSubscription struct {
	ClientID     FlexString   `json:"client_id"`
	ClientIDAlt  FlexString   `json:"clientId"`
	ValidFrom    FlexString   `json:"valid_from"`
	ValidFromAlt FlexString   `json:"validFrom"`
	StartDate    FlexString   `json:"start_date"`
	ValidTill    FlexString   `json:"valid_till"`
	ValidTillAlt FlexString   `json:"validTill"`
	EndDate      FlexString   `json:"end_date"`
	History      []WirePeriod `json:"history"`
}

func (w WireSubscription) Subscription() Subscription {
	history := make([]Period, 0, len(w.History))
	for _, h := range w.History {
		history = append(history, Period{
			StartDate: firstNonEmpty(string(h.StartDate), string(h.StartDateAlt)),
			EndDate:   firstNonEmpty(string(h.EndDate), string(h.EndDateAlt)),
		})
	}
	return Subscription{
		ClientID:  firstNonEmpty(string(w.ClientID), string(w.ClientIDAlt)),
		ValidFrom: firstNonEmpty(string(w.ValidFrom), string(w.ValidFromAlt), string(w.StartDate)),
		ValidTill: firstNonEmpty(string(w.ValidTill), string(w.ValidTillAlt), string(w.EndDate)),
		History:   history,
	}
}

// WirePlan is a plan listing row: assignment dates, the day map and enrolled clients.
type WirePlan struct {
	ID           FlexString                 `json:"_id"`
	PlanID       FlexString                 `json:"plan_id"`
	Name         string                     `json:"name"`
	ClientID     FlexString                 `json:"client_id"`
	StartDate    FlexString                 `json:"start_date"`
	StartDateAlt FlexString                 `json:"startDate"`
	EndDate      FlexString                 `json:"end_date"`
	EndDateAlt   FlexString                 `json:"endDate"`
	TotalDays    *FlexNumber                `json:"total_days"`
	TotalAlt     *FlexNumber                `json:"totalDays"`
	AssignedAt   FlexString                 `json:"assigned_at"`
	Days         map[string]json.RawMessage `json:"days"`
	Clients      []WireClient               `json:"clients"`
}

func (w WirePlan) Plan() Plan {
	var total *float64
	for _, n := range []*FlexNumber{w.TotalDays, w.TotalAlt} {
		if n != nil {
			v := float64(*n)
			total = &v
			break
		}
	}

	keys := make([]string, 0, len(w.Days))
	for k := range w.Days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clients := make([]Client, 0, len(w.Clients))
	for _, c := range w.Clients {
		clients = append(clients, c.Client())
	}

	return Plan{
		PlanAssignment: PlanAssignment{
			ClientID:        string(w.ClientID),
			PlanID:          firstNonEmpty(string(w.PlanID), string(w.ID)),
			PlanName:        w.Name,
			StartDate:       firstNonEmpty(string(w.StartDate), string(w.StartDateAlt)),
			EndDate:         firstNonEmpty(string(w.EndDate), string(w.EndDateAlt)),
			TotalDays:       total,
			AssignedAt:      string(w.AssignedAt),
			EmbeddedDayKeys: keys,
		},
		Clients: clients,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
