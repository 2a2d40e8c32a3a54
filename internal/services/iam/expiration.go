package iam

import (
	"time"

	"github.com/tenantrx/recordsapi/internal/auth"
)

// CheckValidity enforces an external identity's validity window. Bounds are
// minute-granular, so now is truncated to the minute (UTC) before the strict
// comparisons. A nil bound is open on that side.
func CheckValidity(validFrom, validTo *time.Time, now time.Time) error {
	current := now.UTC().Truncate(time.Minute)

	if validFrom != nil && !validFrom.UTC().Truncate(time.Minute).Before(current) {
		return auth.Unauthorizedf("identity not yet valid: valid from %s", validFrom.UTC().Format(time.RFC3339))
	}
	if validTo != nil && !validTo.UTC().Truncate(time.Minute).After(current) {
		return auth.Unauthorizedf("identity expired: valid to %s", validTo.UTC().Format(time.RFC3339))
	}
	return nil
}
