package repository

import (
	"strings"

	apperrors "github.com/welldanyogia/webrana-replypilot/internal/errors"
)

// Common repository errors. They alias the application sentinels so callers
// can match them with either package.
var (
	ErrNotFound       = apperrors.ErrNotFound
	ErrDuplicateEntry = apperrors.ErrDuplicateEntry
	ErrInvalidInput   = apperrors.ErrInvalidInput

	ErrTrackingNotFound = apperrors.ErrTrackingNotFound
)

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

