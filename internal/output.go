package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Output formats accepted by --output
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
	FormatXLSX  = "xlsx"
)

// OutputOptions controls how a report is rendered
type OutputOptions struct {
	Format  string
	Title   string
	Sheet   string
	Numbers NumberFormat
}

// Emit renders rows in the requested format. jsonValue is what the json format
// encodes; the other formats use the declared columns.
func Emit[T any](w io.Writer, opts OutputOptions, cols []Column[T], rows []T, jsonValue any) error {
	switch opts.Format {
	case "", FormatTable:
		PrintTable(w, opts.Title, cols, rows, nil)
		return nil
	case FormatJSON:
		return PrintJSON(w, jsonValue)
	case FormatCSV:
		return WriteCSV(w, cols, rows)
	case FormatXLSX:
		return WriteXLSX(w, opts.Sheet, cols, rows)
	default:
		return fmt.Errorf("unknown output format %q", opts.Format)
	}
}

// PrintJSON writes v as indented JSON
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// PrintTable outputs rows as a rounded go-pretty table. An empty row set prints
// a one-line notice instead of an empty frame.
func PrintTable[T any](w io.Writer, title string, cols []Column[T], rows []T, footer table.Row) {
	if title != "" {
		fmt.Fprintf(w, "%s\n\n", title)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, text.FgHiBlack.Sprint("Nothing to show."))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)

	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c.Label
	}
	t.AppendHeader(header)

	for _, r := range rows {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			if c.Value != nil {
				row[i] = c.Value(r)
			}
		}
		t.AppendRow(row)
	}

	if len(footer) > 0 {
		t.AppendSeparator()
		t.AppendFooter(footer)
	}

	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.SetColumnConfigs(numericColumnConfigs(cols))

	t.Render()
}

// numericColumnConfigs right-aligns columns whose label reads as a count or amount
func numericColumnConfigs[T any](cols []Column[T]) []table.ColumnConfig {
	var configs []table.ColumnConfig
	for i, c := range cols {
		switch c.Label {
		case "Total Days", "Remaining", "Recorded", "Missing", "In Days",
			"Calories", "Protein", "Carbs", "Fats":
			configs = append(configs, table.ColumnConfig{Number: i + 1, Align: text.AlignRight})
		}
	}
	return configs
}

// StatusText colors a timeline status for terminal tables
func StatusText(s TimelineStatus) string {
	label := strings.ToUpper(string(s))
	switch s {
	case StatusActive:
		return text.FgGreen.Sprint(label)
	case StatusExpired:
		return text.FgRed.Sprint(label)
	case StatusUpcoming:
		return text.FgYellow.Sprint(label)
	default:
		return text.FgHiBlack.Sprint(label)
	}
}

// PrintDayTable prints a reconciled day: the summary line followed by its history.
func PrintDayTable(w io.Writer, v DayView, nf NumberFormat) {
	fmt.Fprintf(w, "Day %s (session %s)\n", FormatDisplay(v.Date), v.SessionID)
	if v.Summary == nil {
		fmt.Fprintln(w, text.FgHiBlack.Sprint("No summary loaded."))
		return
	}

	m := v.Summary.Macros
	fmt.Fprintf(w, "Calories %s · Protein %s · Carbs %s · Fats %s · Burned %s\n",
		nf.FormatUnit(m.Calories, "kcal"),
		nf.FormatUnit(m.Protein, "g"),
		nf.FormatUnit(m.Carbohydrates, "g"),
		nf.FormatUnit(m.Fats, "g"),
		nf.FormatUnit(v.Summary.CaloriesBurned, "kcal"))
	if v.Edits > 0 {
		fmt.Fprintf(w, "%d local edit(s) applied\n", v.Edits)
	}
	fmt.Fprintln(w)

	total := MacroVector{}
	for _, e := range v.History {
		total = total.Add(e.Macros)
	}
	footer := table.Row{"", "", text.Bold.Sprint("Entries total"),
		text.Bold.Sprint(nf.Format(total.Calories)),
		text.Bold.Sprint(nf.Format(total.Protein)),
		text.Bold.Sprint(nf.Format(total.Carbohydrates)),
		text.Bold.Sprint(nf.Format(total.Fats)),
	}
	PrintTable(w, "", HistoryColumns(nf), v.History, footer)
}
