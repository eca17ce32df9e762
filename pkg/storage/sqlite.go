package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"nitterscraper/pkg/models"
)

// DefaultTable is the table SQLiteSink writes to when none is set
const DefaultTable = "posts"

// SQLiteSink writes records to a table in a SQLite database. The table is
// dropped and recreated on every save so the file mirrors the latest run.
type SQLiteSink struct {
	Table string
}

// NewSQLiteSink creates a SQLite sink writing to table
func NewSQLiteSink(table string) *SQLiteSink {
	if table == "" {
		table = DefaultTable
	}
	return &SQLiteSink{Table: table}
}

// Save writes records to the database at path
func (s *SQLiteSink) Save(ctx context.Context, records []models.Record, path string) error {
	if len(records) == 0 {
		return ErrNothingToSave
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	columns := Columns(records)
	table := quoteIdent(s.Table)

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(table, columns)); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	for i, r := range records {
		cells, err := row(r, columns)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		values := make([]interface{}, len(cells))
		for j, c := range cells {
			if _, ok := r.Value(columns[j]); ok {
				values[j] = c
			}
		}

		query, args, err := sq.Insert(table).Columns(quoted...).Values(values...).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func createTableSQL(table string, columns []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = quoteIdent(c) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
}

// quoteIdent quotes a SQLite identifier; field names come from mirrors and
// may contain dashes or spaces.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
