package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"nitterscraper/pkg/models"
)

// CSVSink writes records as a CSV file with a header row
type CSVSink struct{}

// NewCSVSink creates a CSV sink
func NewCSVSink() *CSVSink {
	return &CSVSink{}
}

// Save writes records to path, replacing any existing file
func (s *CSVSink) Save(ctx context.Context, records []models.Record, path string) error {
	if len(records) == 0 {
		return ErrNothingToSave
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Create temporary file first
	out, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := out.Name()

	err = writeCSV(out, records)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	// Atomic rename
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

func writeCSV(f *os.File, records []models.Record) error {
	columns := Columns(records)
	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return err
	}
	for _, r := range records {
		cells, err := row(r, columns)
		if err != nil {
			return err
		}
		if err := w.Write(cells); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
