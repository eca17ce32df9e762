// Package storage writes a run's records to a flat table.
//
// Records carry heterogeneous fields. Every sink takes the union of field
// names, in the order they were first seen, as its columns; a record missing
// a column gets an empty cell. Scalar values are written as plain text,
// nested values as JSON.
//
// Two sinks are available:
//
//   - CSVSink writes a CSV file with a header row, through a temporary file
//     that is renamed into place.
//   - SQLiteSink (re)creates a table in a SQLite database and inserts every
//     record in a single transaction.
//
// Saving an empty collection writes nothing and returns ErrNothingToSave.
package storage
