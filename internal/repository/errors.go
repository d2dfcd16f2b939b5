package repository

import "strings"

// isDuplicateKeyError checks if the error is a duplicate key violation
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "23505") // PostgreSQL unique violation code
}

// isRetryableError checks if the error is a transient storage failure worth
// retrying inside the repository: serialization failures, deadlocks, and
// lock timeouts.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "40001") || // serialization_failure
		strings.Contains(errStr, "40P01") || // deadlock_detected
		strings.Contains(errStr, "55P03") || // lock_not_available
		strings.Contains(errStr, "could not serialize") ||
		strings.Contains(errStr, "deadlock detected") ||
		strings.Contains(errStr, "database is locked") // sqlite busy
}
