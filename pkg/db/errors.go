package db

import "strings"

// IsUniqueViolation reports whether err came from a unique constraint.
// Matching is message-based so the same call sites work against the postgres
// driver and the sqlite driver used in repository tests.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
