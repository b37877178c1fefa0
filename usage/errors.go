/*
errors.go - Error taxonomy shared by all store implementations

PURPOSE:
  Sentinel errors for the redemption core, in one place. Denials
  (unauthorized, limit exceeded) are NOT here: those are expected business
  outcomes returned as result values, never as errors. Only genuinely
  exceptional conditions use the error channel.

USAGE:
  Callers classify with errors.Is:

    if errors.Is(err, usage.ErrStorageFailure) {
        // transient - retry the whole redemption attempt from the start
    }
*/
package usage

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStorageFailure is returned when the backing store cannot complete a
	// read or write. Transient: the caller may retry the whole redemption
	// attempt from the first step. Skipping straight to the write on retry
	// would act on stale eligibility.
	ErrStorageFailure = errors.New("usage storage failure")

	// ErrOfferNotFound is returned when a caller passes a dangling offer
	// reference. This is an integration error, surfaced immediately.
	ErrOfferNotFound = errors.New("offer not found")
)

// StorageError wraps a backend failure with the key it occurred on.
type StorageError struct {
	Op  string // "get", "record", "clear"
	Key Key
	Err error
}

func (e *StorageError) Error() string {
	if e.Key.EmployeeID == "" && e.Key.OfferID == "" {
		return fmt.Sprintf("usage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("usage %s (%s, %s): %v", e.Op, e.Key.EmployeeID, e.Key.OfferID, e.Err)
}

func (e *StorageError) Unwrap() error {
	return ErrStorageFailure
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed when the caller
// restarts the redemption attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageFailure)
}
