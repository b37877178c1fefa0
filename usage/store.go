/*
store.go - Persistence contract for usage records

PURPOSE:
  Defines the interface between the eligibility/redemption logic and the
  storage backend. Implementations may be in-memory, embedded (SQLite), or
  remote (PostgreSQL) - interchangeable as long as the per-key atomicity
  guarantee holds.

ATOMICITY CONTRACT:
  RecordUsage must linearize concurrent calls for the same key. Two calls
  racing on an absent record must not both create it with UsageCount = 1:
  exactly one serialization order applies, yielding UsageCount = 2. Plain
  read-modify-write without synchronization is a defect, not an
  implementation choice.

BLOCKING:
  Get and RecordUsage may suspend awaiting a remote backend; callers pass a
  context and treat them as potentially slow. Timeout and cancellation are
  the backend client's concern, but a timeout surfaces as a storage failure
  like any other.
*/
package usage

import "context"

// Store persists EmployeeOfferUsage records keyed by (employee, offer).
type Store interface {
	// Get returns the record for the pair, or ok=false when the employee has
	// never redeemed the offer. Reads are consistent with completed writes
	// for the same key.
	Get(ctx context.Context, employeeID, offerID string) (EmployeeOfferUsage, bool, error)

	// RecordUsage creates the record with UsageCount = 1, or atomically
	// increments the count, refreshes LastUsedAt, and appends code (when
	// non-empty) to the history. Returns the updated record.
	//
	// Eligibility must have been checked before calling: recording beyond an
	// offer's resolved limit is a caller defect the store does not detect.
	RecordUsage(ctx context.Context, employeeID, offerID, code string) (EmployeeOfferUsage, error)

	// ClearAll wipes every record. Administrative reset for test and
	// maintenance harnesses; not a normal operational path and must not be
	// reachable from production API surfaces.
	ClearAll(ctx context.Context) error
}
