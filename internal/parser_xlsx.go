package internal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// rosterColumns maps header labels to roster fields. Lookup is case-insensitive.
var rosterColumns = map[string]string{
	"name":       "name",
	"client":     "name",
	"client id":  "client_id",
	"mobile":     "mobile",
	"mobile no":  "mobile",
	"dob":        "dob",
	"birthday":   "dob",
	"plan":       "plan",
	"start date": "start",
	"end date":   "end",
	"total days": "total",
}

// ParseRosterXLSX reads a client roster export. The first sheet must contain a
// header row with at least Name; Client ID, Mobile, DOB, Plan, Start Date,
// End Date and Total Days are picked up when present. Rows sharing a plan and
// date range are grouped into one plan.
func ParseRosterXLSX(path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in file")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet: %w", err)
	}

	// Find header row and column indices
	cols := map[string]int{}
	dataStartRow := -1
	for i, row := range rows {
		found := map[string]int{}
		for j, cell := range row {
			if field, ok := rosterColumns[strings.ToLower(strings.TrimSpace(cell))]; ok {
				if _, dup := found[field]; !dup {
					found[field] = j
				}
			}
		}
		if _, ok := found["name"]; ok {
			cols = found
			dataStartRow = i + 1
			break
		}
	}
	if dataStartRow < 0 {
		return nil, fmt.Errorf("could not find header row with a Name column")
	}

	cell := func(row []string, field string) string {
		j, ok := cols[field]
		if !ok || j >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[j])
	}

	ds := &Dataset{}
	planIndex := map[string]int{}

	for i := dataStartRow; i < len(rows); i++ {
		row := rows[i]
		name := cell(row, "name")
		if name == "" {
			continue
		}

		client := Client{
			Name:         name,
			ClientID:     cell(row, "client_id"),
			MobileNumber: cell(row, "mobile"),
			DOBFragment:  normalizeDOBCell(cell(row, "dob")),
		}
		client.ID = client.ClientID
		ds.Clients = append(ds.Clients, client)

		planName := cell(row, "plan")
		if planName == "" {
			continue
		}
		start := excelDateCell(cell(row, "start"))
		end := excelDateCell(cell(row, "end"))
		key := planName + "|" + start + "|" + end

		idx, ok := planIndex[key]
		if !ok {
			p := Plan{PlanAssignment: PlanAssignment{
				PlanID:    planName,
				PlanName:  planName,
				StartDate: start,
				EndDate:   end,
			}}
			if total := cell(row, "total"); total != "" {
				if v, err := strconv.ParseFloat(total, 64); err == nil {
					p.TotalDays = &v
				}
			}
			ds.Plans = append(ds.Plans, p)
			idx = len(ds.Plans) - 1
			planIndex[key] = idx
		}
		ds.Plans[idx].Clients = append(ds.Plans[idx].Clients, client)
	}

	return ds, nil
}

// excelDateCell turns a raw date cell into text the normalizer understands.
// Serial numbers are converted; anything else is passed through.
func excelDateCell(raw string) string {
	if raw == "" {
		return ""
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return raw
	}
	return t.Format(DayKeyLayout)
}

// normalizeDOBCell reduces a full birth date to its dd-mm fragment.
func normalizeDOBCell(raw string) string {
	if raw == "" || birthdayPattern.MatchString(raw) {
		return raw
	}
	if d, ok := NormalizeString(excelDateCell(raw)); ok {
		return d.Format("02-01")
	}
	return raw
}

func init() {
	RegisterParser("roster-xlsx", ParserFunc(ParseRosterXLSX))
}
