package internal

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Report names accepted by the CLI
const (
	ReportTimeline  = "timeline"
	ReportGaps      = "gaps"
	ReportExpiries  = "expiries"
	ReportBirthdays = "birthdays"
	ReportReconcile = "reconcile"
)

// TimelineRow is one subscription or plan assignment with its resolved timeline.
type TimelineRow struct {
	Kind     string // "subscription" or "plan"
	ClientID string
	Client   string
	PlanID   string
	Timeline Timeline
	Status   TimelineStatus
}

// JSONTimeline is the JSON output format for a timeline row
type JSONTimeline struct {
	Kind          string `json:"kind"`
	ClientID      string `json:"client_id"`
	Client        string `json:"client,omitempty"`
	PlanID        string `json:"plan_id,omitempty"`
	Start         string `json:"start,omitempty"`
	End           string `json:"end,omitempty"`
	TotalDays     *int   `json:"total_days"`
	RemainingDays *int   `json:"remaining_days"`
	Status        string `json:"status"`
}

// JSONGap is the JSON output format for a plan gap row
type JSONGap struct {
	ClientID     string   `json:"client_id"`
	PlanID       string   `json:"plan_id"`
	Start        string   `json:"start,omitempty"`
	TotalDays    *int     `json:"total_days"`
	Recorded     int      `json:"recorded"`
	MissingDates []string `json:"missing_dates"`
}

// JSONExpiry is the JSON output format for a client expiry
type JSONExpiry struct {
	ClientID      string `json:"client_id"`
	Client        string `json:"client"`
	Mobile        string `json:"mobile,omitempty"`
	PlanID        string `json:"plan_id"`
	Expiry        string `json:"expiry,omitempty"`
	RemainingDays *int   `json:"remaining_days"`
}

// JSONBirthday is the JSON output format for an upcoming birthday
type JSONBirthday struct {
	ClientID       string `json:"client_id"`
	Client         string `json:"client"`
	Mobile         string `json:"mobile,omitempty"`
	NextOccurrence string `json:"next_occurrence"`
	DaysUntil      int    `json:"days_until"`
}

// JSONDay is the JSON output format for a reconciled day
type JSONDay struct {
	SessionID string       `json:"session_id"`
	Date      string       `json:"date"`
	Summary   *JSONSummary `json:"summary"`
	History   []JSONEntry  `json:"history"`
	Edits     int          `json:"edits"`
}

// JSONSummary is the displayed daily summary, rounded to 2 decimals
type JSONSummary struct {
	MacroVector
	CaloriesBurned float64 `json:"calories_burned"`
}

// JSONEntry is one displayed history entry
type JSONEntry struct {
	ID        string      `json:"_id"`
	Type      string      `json:"type"`
	Question  string      `json:"question,omitempty"`
	Reference string      `json:"reference,omitempty"`
	Time      string      `json:"time,omitempty"`
	Macros    MacroVector `json:"macros"`
}

// BuildTimelineRows resolves every subscription and plan assignment in ds.
func BuildTimelineRows(ds *Dataset, cfg *Config, today time.Time) []TimelineRow {
	names := clientIndex(ds.Clients)
	var rows []TimelineRow

	for _, s := range ds.Subscriptions {
		if excludedID(cfg, names, s.ClientID) {
			continue
		}
		tl := ResolveSubscriptionTimeline(s, today)
		rows = append(rows, TimelineRow{
			Kind:     "subscription",
			ClientID: s.ClientID,
			Client:   displayName(cfg, names, s.ClientID),
			Timeline: tl,
			Status:   tl.Status(today),
		})
	}

	for _, a := range ds.Assignments() {
		if excludedID(cfg, names, a.ClientID) {
			continue
		}
		tl := ResolvePlanTimeline(a, today)
		rows = append(rows, TimelineRow{
			Kind:     "plan",
			ClientID: a.ClientID,
			Client:   displayName(cfg, names, a.ClientID),
			PlanID:   a.PlanID,
			Timeline: tl,
			Status:   tl.Status(today),
		})
	}
	return rows
}

// BuildGapRows runs gap detection over every plan assignment in ds.
func BuildGapRows(ds *Dataset, cfg *Config, today time.Time) []PlanGap {
	names := clientIndex(ds.Clients)
	var rows []PlanGap
	for _, a := range ds.Assignments() {
		if excludedID(cfg, names, a.ClientID) {
			continue
		}
		rows = append(rows, PlanGaps(a, today))
	}
	return rows
}

// BuildExpiryRows aggregates per-client expiries with the configured tie-break.
func BuildExpiryRows(ds *Dataset, cfg *Config, today time.Time) []ClientExpiry {
	names := clientIndex(ds.Clients)
	plans := PlanExpiries(ds.Plans, today)
	for i := range plans {
		plans[i].Clients = cfg.FilterClients(lo.Map(plans[i].Clients, func(c Client, _ int) Client {
			return enrichClient(names, c)
		}))
	}
	expiries := ResolveClientExpiries(plans, cfg.TieBreak())
	return ExpiringWithin(expiries, today, cfg.windowExpiring())
}

// BuildBirthdayRows lists upcoming birthdays inside the configured window.
func BuildBirthdayRows(ds *Dataset, cfg *Config, today time.Time) []UpcomingBirthday {
	clients := lo.UniqBy(cfg.FilterClients(ds.Clients), func(c Client) string {
		return c.Key()
	})
	return UpcomingBirthdays(clients, today, cfg.windowBirthdays())
}

// DayJSON converts a session view for JSON output.
func DayJSON(v DayView) JSONDay {
	out := JSONDay{
		SessionID: v.SessionID,
		Date:      FormatDisplay(v.Date),
		Edits:     v.Edits,
		History:   make([]JSONEntry, 0, len(v.History)),
	}
	if v.Summary != nil {
		out.Summary = &JSONSummary{
			MacroVector:    v.Summary.Macros.Rounded(),
			CaloriesBurned: Round2(v.Summary.CaloriesBurned),
		}
	}
	for _, e := range v.History {
		out.History = append(out.History, JSONEntry{
			ID:        e.ID,
			Type:      string(e.Type),
			Question:  e.Question,
			Reference: e.Reference,
			Time:      formatClock(e.Timestamp),
			Macros:    e.Macros.Rounded(),
		})
	}
	return out
}

// TimelineColumns declares the timeline report columns.
func TimelineColumns(nf NumberFormat) []Column[TimelineRow] {
	return []Column[TimelineRow]{
		{Label: "Kind", Value: func(r TimelineRow) string { return r.Kind }},
		{Label: "Client", Value: func(r TimelineRow) string { return r.Client }},
		{Label: "Plan", Value: func(r TimelineRow) string { return r.PlanID }},
		dateColumn("Start", func(r TimelineRow) time.Time { return r.Timeline.Start }),
		dateColumn("End", func(r TimelineRow) time.Time { return r.Timeline.End }),
		intColumn(nf, "Total Days", func(r TimelineRow) *int { return r.Timeline.TotalDays }),
		intColumn(nf, "Remaining", func(r TimelineRow) *int { return r.Timeline.RemainingDays }),
		{Label: "Status", Value: func(r TimelineRow) string { return StatusText(r.Status) },
			ExportValue: func(r TimelineRow) string { return string(r.Status) }},
	}
}

// GapColumns declares the gaps report columns.
func GapColumns(nf NumberFormat) []Column[PlanGap] {
	return []Column[PlanGap]{
		{Label: "Client", Value: func(g PlanGap) string { return g.Assignment.ClientID }},
		{Label: "Plan", Value: func(g PlanGap) string { return g.Assignment.PlanID }},
		dateColumn("Start", func(g PlanGap) time.Time { return g.Timeline.Start }),
		intColumn(nf, "Total Days", func(g PlanGap) *int { return g.Timeline.TotalDays }),
		{Label: "Recorded", Value: func(g PlanGap) string { return nf.FormatInt(g.Recorded) },
			ExportValue: func(g PlanGap) string { return strconv.Itoa(g.Recorded) }},
		{Label: "Missing", Value: func(g PlanGap) string { return nf.FormatInt(len(g.MissingDates)) },
			ExportValue: func(g PlanGap) string { return strconv.Itoa(len(g.MissingDates)) }},
		{Label: "Missing Dates", Value: func(g PlanGap) string { return summarizeDates(g.MissingDates, 4) },
			ExportValue: func(g PlanGap) string { return strings.Join(g.MissingDates, ", ") }},
	}
}

// ExpiryColumns declares the expiries report columns.
func ExpiryColumns(nf NumberFormat, cfg *Config, today time.Time) []Column[ClientExpiry] {
	return []Column[ClientExpiry]{
		{Label: "Client", Value: func(e ClientExpiry) string { return cfg.GetLabel(e.Client) }},
		{Label: "Client ID", Value: func(e ClientExpiry) string { return e.Client.ClientID }},
		{Label: "Mobile", Value: func(e ClientExpiry) string { return e.Client.MobileNumber }},
		{Label: "Plan", Value: func(e ClientExpiry) string { return e.PlanID }},
		dateColumn("Expiry", func(e ClientExpiry) time.Time { return e.Expiry }),
		intColumn(nf, "Remaining", func(e ClientExpiry) *int { return remainingDays(e.Expiry, today) }),
	}
}

// BirthdayColumns declares the birthdays report columns.
func BirthdayColumns(nf NumberFormat, cfg *Config) []Column[UpcomingBirthday] {
	return []Column[UpcomingBirthday]{
		{Label: "Client", Value: func(b UpcomingBirthday) string { return cfg.GetLabel(b.Client) }},
		{Label: "Client ID", Value: func(b UpcomingBirthday) string { return b.Client.ClientID }},
		{Label: "Mobile", Value: func(b UpcomingBirthday) string { return b.Client.MobileNumber }},
		dateColumn("Next Birthday", func(b UpcomingBirthday) time.Time { return b.NextOccurrence }),
		{Label: "In Days", Value: func(b UpcomingBirthday) string { return nf.FormatInt(b.DaysUntil) },
			ExportValue: func(b UpcomingBirthday) string { return strconv.Itoa(b.DaysUntil) }},
	}
}

// HistoryColumns declares the reconcile report's history columns.
func HistoryColumns(nf NumberFormat) []Column[LogEntry] {
	return []Column[LogEntry]{
		{Label: "Time", Value: func(e LogEntry) string { return formatClock(e.Timestamp) }},
		{Label: "Type", Value: func(e LogEntry) string { return string(e.Type) }},
		{Label: "Entry", Value: func(e LogEntry) string { return firstNonEmpty(e.Reference, e.Question) }},
		macroColumn(nf, "Calories", func(m MacroVector) float64 { return m.Calories }),
		macroColumn(nf, "Protein", func(m MacroVector) float64 { return m.Protein }),
		macroColumn(nf, "Carbs", func(m MacroVector) float64 { return m.Carbohydrates }),
		macroColumn(nf, "Fats", func(m MacroVector) float64 { return m.Fats }),
	}
}

// TimelineJSON converts timeline rows for JSON output.
func TimelineJSON(rows []TimelineRow) []JSONTimeline {
	return lo.Map(rows, func(r TimelineRow, _ int) JSONTimeline {
		return JSONTimeline{
			Kind:          r.Kind,
			ClientID:      r.ClientID,
			Client:        r.Client,
			PlanID:        r.PlanID,
			Start:         FormatDisplay(r.Timeline.Start),
			End:           FormatDisplay(r.Timeline.End),
			TotalDays:     r.Timeline.TotalDays,
			RemainingDays: r.Timeline.RemainingDays,
			Status:        string(r.Status),
		}
	})
}

// GapJSON converts gap rows for JSON output.
func GapJSON(rows []PlanGap) []JSONGap {
	return lo.Map(rows, func(g PlanGap, _ int) JSONGap {
		missing := g.MissingDates
		if missing == nil {
			missing = []string{}
		}
		return JSONGap{
			ClientID:     g.Assignment.ClientID,
			PlanID:       g.Assignment.PlanID,
			Start:        FormatDisplay(g.Timeline.Start),
			TotalDays:    g.Timeline.TotalDays,
			Recorded:     g.Recorded,
			MissingDates: missing,
		}
	})
}

// ExpiryJSON converts client expiries for JSON output.
func ExpiryJSON(rows []ClientExpiry, cfg *Config, today time.Time) []JSONExpiry {
	return lo.Map(rows, func(e ClientExpiry, _ int) JSONExpiry {
		return JSONExpiry{
			ClientID:      e.Client.Key(),
			Client:        cfg.GetLabel(e.Client),
			Mobile:        e.Client.MobileNumber,
			PlanID:        e.PlanID,
			Expiry:        FormatDisplay(e.Expiry),
			RemainingDays: remainingDays(e.Expiry, today),
		}
	})
}

// BirthdayJSON converts upcoming birthdays for JSON output.
func BirthdayJSON(rows []UpcomingBirthday, cfg *Config) []JSONBirthday {
	return lo.Map(rows, func(b UpcomingBirthday, _ int) JSONBirthday {
		return JSONBirthday{
			ClientID:       b.Client.Key(),
			Client:         cfg.GetLabel(b.Client),
			Mobile:         b.Client.MobileNumber,
			NextOccurrence: FormatDisplay(b.NextOccurrence),
			DaysUntil:      b.DaysUntil,
		}
	})
}

func dateColumn[T any](label string, get func(T) time.Time) Column[T] {
	return Column[T]{
		Label: label,
		Value: func(row T) string {
			if d := get(row); !d.IsZero() {
				return FormatDisplay(d)
			}
			return "-"
		},
		ExportValue: func(row T) string { return FormatDisplay(get(row)) },
	}
}

func intColumn[T any](nf NumberFormat, label string, get func(T) *int) Column[T] {
	return Column[T]{
		Label: label,
		Value: func(row T) string {
			if v := get(row); v != nil {
				return nf.FormatInt(*v)
			}
			return "-"
		},
		ExportValue: func(row T) string {
			if v := get(row); v != nil {
				return strconv.Itoa(*v)
			}
			return ""
		},
	}
}

func macroColumn(nf NumberFormat, label string, get func(MacroVector) float64) Column[LogEntry] {
	return Column[LogEntry]{
		Label: label,
		Value: func(e LogEntry) string { return nf.Format(get(e.Macros)) },
		ExportValue: func(e LogEntry) string {
			return strconv.FormatFloat(Round2(get(e.Macros)), 'f', -1, 64)
		},
	}
}

func remainingDays(end, today time.Time) *int {
	if end.IsZero() {
		return nil
	}
	n := DaysBetween(today, end)
	return &n
}

func formatClock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(time.Local).Format("15:04")
}

// summarizeDates shortens long date lists for table cells.
func summarizeDates(dates []string, max int) string {
	if len(dates) <= max {
		return strings.Join(dates, ", ")
	}
	return strings.Join(dates[:max], ", ") + ", +" + strconv.Itoa(len(dates)-max) + " more"
}

func clientIndex(clients []Client) map[string]Client {
	idx := make(map[string]Client, len(clients))
	for _, c := range clients {
		for _, k := range []string{c.ID, c.ClientID} {
			if k != "" {
				idx[k] = c
			}
		}
	}
	return idx
}

// lookupClient finds the roster record for c by record ID, then by client ID.
func lookupClient(idx map[string]Client, c Client) (Client, bool) {
	for _, k := range []string{c.ID, c.ClientID} {
		if k == "" {
			continue
		}
		if full, ok := idx[k]; ok {
			return full, true
		}
	}
	return Client{}, false
}

// enrichClient fills in roster details for clients that plans list by one
// identifier only. The roster's record ID is adopted so that every alias of a
// client yields the same Key.
func enrichClient(idx map[string]Client, c Client) Client {
	full, ok := lookupClient(idx, c)
	if !ok {
		return c
	}
	if full.ID != "" {
		c.ID = full.ID
	}
	if c.Name == "" {
		c.Name = full.Name
	}
	if c.ClientID == "" {
		c.ClientID = full.ClientID
	}
	if c.MobileNumber == "" {
		c.MobileNumber = full.MobileNumber
	}
	if c.DOBFragment == "" {
		c.DOBFragment = full.DOBFragment
	}
	return c
}

func displayName(cfg *Config, idx map[string]Client, clientID string) string {
	if c, ok := idx[clientID]; ok {
		return cfg.GetLabel(c)
	}
	return clientID
}

func excludedID(cfg *Config, idx map[string]Client, clientID string) bool {
	c, ok := idx[clientID]
	if !ok {
		c = Client{ClientID: clientID}
	}
	return cfg.ShouldExclude(c)
}

func (c *Config) windowExpiring() int {
	if c == nil {
		return 0
	}
	return c.ExpiringWithinDays
}

func (c *Config) windowBirthdays() int {
	if c == nil {
		return 0
	}
	return c.BirthdayWindowDays
}

// SortTimelineRows orders rows by end date, unknown ends last, then by client.
func SortTimelineRows(rows []TimelineRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Timeline.End, rows[j].Timeline.End
		if a.IsZero() != b.IsZero() {
			return !a.IsZero()
		}
		if !a.Equal(b) {
			return a.Before(b)
		}
		return strings.ToLower(rows[i].Client) < strings.ToLower(rows[j].Client)
	})
}
