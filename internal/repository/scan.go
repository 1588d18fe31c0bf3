package repository

import (
	"database/sql"
	"strings"
	"time"
)

// All timestamps are stored as UTC strings in this layout so the SQL
// stays portable between MySQL DATETIME columns and the SQLite driver
// used by the tests. Columns are scanned as strings and parsed here.
const timeLayout = "2006-01-02 15:04:05"

func nowStamp() string { return time.Now().UTC().Format(timeLayout) }

func parseStamp(s string) time.Time {
	t, err := time.Parse(timeLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func uintPtr(ni sql.NullInt64) *uint64 {
	if !ni.Valid {
		return nil
	}
	u := uint64(ni.Int64)
	return &u
}

// isDuplicateErr reports whether err looks like a unique constraint
// violation. MySQL surfaces error 1062; SQLite reports a UNIQUE
// constraint failure.
func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique")
}
