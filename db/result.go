package db

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nickyhof/TableDB/core"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	CommitResultType
)

// Output formats accepted by Result.Render.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

type Result interface {
	Type() ResultType
	Render(w io.Writer, format string) error
}

type QueryResult struct {
	Columns          []string
	Rows             []core.Row
	RecordsRead      int
	ExecutionTimeSec float64
}

type CommitResult struct {
	TablesCreated    int
	RecordsWritten   int
	RecordsUpdated   int
	RecordsDeleted   int
	ExecutionTimeSec float64
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

func (result CommitResult) Type() ResultType {
	return CommitResultType
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	if secs < 0.001 {
		return "<1ms"
	} else if secs < 1 {
		ms := secs * 1000
		if ms < 10 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%dms", int(ms))
	} else if secs < 60 {
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	} else {
		mins := int(secs / 60)
		remainSecs := int(secs) % 60
		if remainSecs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm%ds", mins, remainSecs)
	}
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result CommitResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

// formatValue renders a cell: null as NULL, strings verbatim, anything else as JSON.
func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return "NULL"
	case string:
		return value
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(data)
	}
}

func (result QueryResult) Render(w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Rows)
	case FormatTable, "":
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}

	if len(result.Rows) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)

		header := make(table.Row, len(result.Columns))
		for i, col := range result.Columns {
			header[i] = col
		}
		t.AppendHeader(header)

		for _, row := range result.Rows {
			cells := make(table.Row, len(result.Columns))
			for i, col := range result.Columns {
				cells[i] = formatValue(row[col])
			}
			t.AppendRow(cells)
		}
		t.Render()
	}

	_, err := fmt.Fprintf(w, "%d rows (%s)\n", result.RecordsRead, result.ExecutionTime())
	return err
}

func (result CommitResult) Render(w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"tables_created":  result.TablesCreated,
			"records_written": result.RecordsWritten,
			"records_updated": result.RecordsUpdated,
			"records_deleted": result.RecordsDeleted,
			"execution_time":  result.ExecutionTimeSec,
		})
	case FormatTable, "":
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}

	var parts []string
	if result.TablesCreated > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) created", result.TablesCreated))
	}
	if result.RecordsWritten > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) written", result.RecordsWritten))
	}
	if result.RecordsUpdated > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) updated", result.RecordsUpdated))
	}
	if result.RecordsDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) deleted", result.RecordsDeleted))
	}

	var err error
	if len(parts) == 0 {
		_, err = fmt.Fprintf(w, "OK (%s)\n", result.ExecutionTime())
	} else {
		_, err = fmt.Fprintf(w, "%s (%s)\n", strings.Join(parts, ", "), result.ExecutionTime())
	}
	return err
}
