// Package models holds the data types shared between the fetchers, the
// scraper and the sinks: account identifiers, ordered field bags and the
// records written to the output table.
package models

import "strings"

// MentionMarker is the prefix users commonly put in front of a handle.
const MentionMarker = "@"

// Account is a normalized account handle.
type Account string

// String returns the handle without any mention marker.
func (a Account) String() string {
	return string(a)
}

// NormalizeAccount trims whitespace and strips every leading mention marker.
func NormalizeAccount(raw string) Account {
	handle := strings.TrimSpace(raw)
	handle = strings.TrimLeft(handle, MentionMarker)
	return Account(strings.TrimSpace(handle))
}

// NormalizeAccounts normalizes a list of handles, dropping blank entries.
// Input order is preserved.
func NormalizeAccounts(raw []string) []Account {
	accounts := make([]Account, 0, len(raw))
	for _, r := range raw {
		if a := NormalizeAccount(r); a != "" {
			accounts = append(accounts, a)
		}
	}
	return accounts
}
