package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"nitterscraper/pkg/config"
	"nitterscraper/pkg/models"
)

// ErrNothingToSave is returned when a sink is handed no records
var ErrNothingToSave = errors.New("no records to save")

// Sink persists records to path
type Sink interface {
	Save(ctx context.Context, records []models.Record, path string) error
}

// FormatFor returns format, or the format implied by the path's extension
// when format is empty.
func FormatFor(path, format string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return config.FormatSQLite
	default:
		return config.FormatCSV
	}
}

// NewSink returns the sink for format (see FormatFor)
func NewSink(format, path, table string) (Sink, error) {
	switch FormatFor(path, format) {
	case config.FormatCSV:
		return NewCSVSink(), nil
	case config.FormatSQLite:
		return NewSQLiteSink(table), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// Columns returns the union of the records' columns in first-seen order
func Columns(records []models.Record) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range records {
		for _, c := range r.Columns() {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	return cols
}

// Summary describes the table a set of records produces
type Summary struct {
	Rows    int
	Columns []string
}

// Summarize returns the shape of the table records would produce
func Summarize(records []models.Record) Summary {
	return Summary{Rows: len(records), Columns: Columns(records)}
}

// row renders a record as one cell per column
func row(r models.Record, columns []string) ([]string, error) {
	cells := make([]string, len(columns))
	for i, c := range columns {
		v, ok := r.Value(c)
		if !ok {
			continue
		}
		cell, err := formatValue(v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c, err)
		}
		cells[i] = cell
	}
	return cells, nil
}

func formatValue(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case fmt.Stringer:
		return val.String(), nil
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
