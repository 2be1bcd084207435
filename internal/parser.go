package internal

import (
	"fmt"
	"sort"
	"strings"
)

// Dataset is everything a report can work on, loaded from one input.
type Dataset struct {
	Clients       []Client
	Plans         []Plan
	Subscriptions []Subscription
	Analysis      map[string]AnalysisResponse // keyed by yyyy-MM-dd
	Edits         []RecordedEdit
}

// RecordedEdit is an edit captured in a snapshot, replayed by the reconcile report.
type RecordedEdit struct {
	EntryID string   `json:"entry_id"`
	Date    string   `json:"date"`
	Version int64    `json:"version,omitempty"` // base version; 0 means the current one
	Data    EditData `json:"data"`
}

// Assignments flattens plans into per-client assignments. A plan without
// enrolled clients yields its own assignment row. Enrolled clients are
// identified by their roster record, whichever alias the plan lists them by.
func (d *Dataset) Assignments() []PlanAssignment {
	idx := clientIndex(d.Clients)
	var result []PlanAssignment
	for _, p := range d.Plans {
		if len(p.Clients) == 0 {
			result = append(result, p.PlanAssignment)
			continue
		}
		for _, c := range p.Clients {
			a := p.PlanAssignment
			a.ClientID = enrichClient(idx, c).Key()
			result = append(result, a)
		}
	}
	return result
}

// Merge appends other into d.
func (d *Dataset) Merge(other *Dataset) {
	if other == nil {
		return
	}
	d.Clients = append(d.Clients, other.Clients...)
	d.Plans = append(d.Plans, other.Plans...)
	d.Subscriptions = append(d.Subscriptions, other.Subscriptions...)
	d.Edits = append(d.Edits, other.Edits...)
	if len(other.Analysis) > 0 && d.Analysis == nil {
		d.Analysis = make(map[string]AnalysisResponse, len(other.Analysis))
	}
	for k, v := range other.Analysis {
		d.Analysis[k] = v
	}
}

// Parser loads an input file into a Dataset
type Parser interface {
	Parse(path string) (*Dataset, error)
}

// ParserFunc is a function that implements Parser
type ParserFunc func(path string) (*Dataset, error)

func (f ParserFunc) Parse(path string) (*Dataset, error) {
	return f(path)
}

// parsers is the registry of available input formats
var parsers = map[string]Parser{}

// RegisterParser registers a parser with the given name
func RegisterParser(name string, p Parser) {
	parsers[name] = p
}

// GetParser returns the parser for the given source type
func GetParser(source string) (Parser, error) {
	p, ok := parsers[source]
	if !ok {
		return nil, fmt.Errorf("unknown source type: %s (available: %v)", source, AvailableSources())
	}
	return p, nil
}

// AvailableSources returns the registered source types, sorted
func AvailableSources() []string {
	var sources []string
	for name := range parsers {
		sources = append(sources, name)
	}
	sort.Strings(sources)
	return sources
}

// IsKnownParser returns true if the name is a registered parser
func IsKnownParser(name string) bool {
	_, ok := parsers[name]
	return ok
}

// ParseFileArg splits an optional format prefix from a file argument.
// Example: "roster-xlsx:clients.xlsx" → ("roster-xlsx", "clients.xlsx")
// Example: "C:\data\snapshot.json" → ("", "C:\data\snapshot.json")
func ParseFileArg(arg string) (format, path string) {
	idx := strings.Index(arg, ":")
	if idx == -1 {
		return "", arg
	}
	prefix := arg[:idx]
	if IsKnownParser(prefix) {
		return prefix, arg[idx+1:]
	}
	return "", arg
}

// DetectSource guesses the input format from the file extension.
func DetectSource(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		return "roster-xlsx"
	default:
		return "dashboard-json"
	}
}
