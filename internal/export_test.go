package internal

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type exportRow struct {
	Name  string
	Notes string
}

var exportColumns = []Column[exportRow]{
	{Label: "Name", Value: func(r exportRow) string { return r.Name }},
	{
		Label:       "Notes",
		Value:       func(r exportRow) string { return "[" + r.Notes + "]" },
		ExportValue: func(r exportRow) string { return r.Notes },
	},
}

func TestWriteCSVRoundTrip(t *testing.T) {
	rows := []exportRow{
		{Name: "Smith, Jane", Notes: `said "hi"`},
		{Name: "Multi", Notes: "line one\nline two"},
		{Name: "Plain", Notes: "ok"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, exportColumns, rows))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\ufeff"), "expected UTF-8 BOM")
	assert.Contains(t, out, `"Smith, Jane"`)
	assert.Contains(t, out, `"said ""hi"""`)

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"Name", "Notes"}, records[0])
	assert.Equal(t, "Smith, Jane", records[1][0])
	assert.Equal(t, `said "hi"`, records[1][1])
	assert.Equal(t, "line one\nline two", records[2][1])
}

func TestExportRecordsPrefersExportValue(t *testing.T) {
	records := ExportRecords(exportColumns, []exportRow{{Name: "a", Notes: "b"}})
	assert.Equal(t, [][]string{{"Name", "Notes"}, {"a", "b"}}, records)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, "gaps", exportColumns, []exportRow{{Name: "Smith, Jane", Notes: "x"}}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("gaps")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Name", "Notes"}, rows[0])
	assert.Equal(t, []string{"Smith, Jane", "x"}, rows[1])
}
