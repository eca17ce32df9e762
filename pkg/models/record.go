package models

import (
	"encoding/json"
)

// ScrapedUsernameField is the column every record is tagged with.
const ScrapedUsernameField = "scraped_username"

// Record is one fetched post: the mirror's pass-through fields plus the
// account that produced it. The account is fixed at construction.
type Record struct {
	username Account
	extra    *Fields
}

// NewRecord tags a copy of fields with the producing account. A
// pass-through field that collides with ScrapedUsernameField is dropped.
func NewRecord(account Account, fields *Fields) Record {
	extra := fields.Clone()
	extra.Delete(ScrapedUsernameField)
	return Record{username: account, extra: extra}
}

// Username returns the account the record was fetched for.
func (r Record) Username() Account {
	return r.username
}

// Columns lists the record's field names: pass-through fields in arrival
// order followed by ScrapedUsernameField.
func (r Record) Columns() []string {
	return append(r.extra.Keys(), ScrapedUsernameField)
}

// Value returns the value of a column.
func (r Record) Value(column string) (interface{}, bool) {
	if column == ScrapedUsernameField {
		return string(r.username), true
	}
	return r.extra.Get(column)
}

// MarshalJSON encodes the record as a flat JSON object.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := r.extra.Clone()
	flat.Set(ScrapedUsernameField, string(r.username))
	return json.Marshal(flat)
}
