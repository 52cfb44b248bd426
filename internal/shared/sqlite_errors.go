package shared

import "strings"

// IsSQLiteConflictError checks if the error is a SQLITE_BUSY or "database
// is locked" error. Both are SQLite concurrency errors that warrant retry.
// This is the one place string matching on driver errors is allowed; the
// modernc driver does not expose typed codes through database/sql.
func IsSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
