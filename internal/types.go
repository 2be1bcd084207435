package internal

import "time"

// Client is a coached person as listed by the dashboard.
type Client struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	ClientID     string `json:"client_id"`
	MobileNumber string `json:"mobile_number,omitempty"`
	ProfilePhoto string `json:"profile_photo,omitempty"`
	DOBFragment  string `json:"dob,omitempty"` // "dd-mm", no year
}

// Key returns the identity used for deduplication: the record ID, then the
// client ID, then the name for rosters without identifiers.
func (c Client) Key() string {
	return firstNonEmpty(c.ID, c.ClientID, c.Name)
}

// Period is one historical validity window of a subscription.
type Period struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// Subscription is a client's membership with raw backend dates.
type Subscription struct {
	ClientID  string   `json:"client_id"`
	ValidFrom string   `json:"valid_from,omitempty"`
	ValidTill string   `json:"valid_till,omitempty"`
	History   []Period `json:"history,omitempty"`
}

// PlanAssignment is a meal or workout plan assigned to a client.
// EmbeddedDayKeys are the date-like keys of the plan's day-to-content map.
type PlanAssignment struct {
	ClientID        string   `json:"client_id"`
	PlanID          string   `json:"plan_id"`
	PlanName        string   `json:"plan_name,omitempty"`
	StartDate       string   `json:"start_date,omitempty"`
	EndDate         string   `json:"end_date,omitempty"`
	TotalDays       *float64 `json:"total_days,omitempty"`
	AssignedAt      string   `json:"assigned_at,omitempty"`
	EmbeddedDayKeys []string `json:"-"`
}

// Plan is a plan with its enrolled clients, as returned by the plan listing endpoint.
type Plan struct {
	PlanAssignment
	Clients []Client `json:"clients,omitempty"`
}

// TimelineStatus classifies a timeline relative to today.
type TimelineStatus string

const (
	StatusActive   TimelineStatus = "active"
	StatusExpired  TimelineStatus = "expired"
	StatusUpcoming TimelineStatus = "upcoming"
	StatusUnknown  TimelineStatus = "unknown"
)

// Timeline holds resolved facts. Zero Start/End and nil counts mean unknown.
type Timeline struct {
	Start         time.Time
	End           time.Time
	TotalDays     *int
	RemainingDays *int
}

// EntryType is the kind of a daily log entry.
type EntryType string

const (
	EntryFood     EntryType = "Food"
	EntryMood     EntryType = "Mood"
	EntryExercise EntryType = "Exercise"
	EntryGuidance EntryType = "Guidance"
)

// LogEntry is one item of a client's daily history.
type LogEntry struct {
	ID        string
	Type      EntryType
	Question  string
	Macros    MacroVector
	Reference string
	Timestamp time.Time
}

// DailySummary is the per-day nutrition and activity aggregate.
type DailySummary struct {
	Date           time.Time
	Macros         MacroVector
	CaloriesBurned float64
}
