/*
Package usage tracks per-employee redemption state for offers.

PURPOSE:
  Defines the EmployeeOfferUsage record, the Store contract for persisting
  it, and the error taxonomy shared by all store implementations. The record
  is keyed by (EmployeeID, OfferID); the key is unique and stable for the
  pair's lifetime.

INVARIANTS:
  1. UsageCount equals the number of recorded usages and never decreases.
  2. DiscountCodes is append-only: codes are issued in order and never
     rewritten.
  3. RecordUsage is atomic per key: concurrent calls for the same pair are
     linearized, so no two callers can both observe and act on the same
     pre-increment count.

LIFECYCLE:
  A record is created on the first successful redemption for a pair and
  updated on every subsequent one. Records are never deleted in normal
  operation; ClearAll exists for test and maintenance harnesses only.

SEE ALSO:
  - store.go: The Store contract
  - store/memory.go: In-memory implementation
  - store/sqlite, store/postgres (module root): Durable implementations
*/
package usage

import "time"

// EmployeeOfferUsage is the durable redemption state for one
// (employee, offer) pair.
type EmployeeOfferUsage struct {
	EmployeeID string
	OfferID    string

	// UsageCount is the number of recorded redemptions. Monotonically
	// non-decreasing; equal to the length of the recorded history.
	UsageCount int

	// LastUsedAt is the timestamp of the most recent recorded usage.
	LastUsedAt time.Time

	// DiscountCodes holds every code issued for this pair, in issue order.
	// Branch redemptions record no code, so len(DiscountCodes) may be less
	// than UsageCount.
	DiscountCodes []string

	CreatedAt time.Time
}

// Key identifies a usage record.
type Key struct {
	EmployeeID string
	OfferID    string
}

// Clone returns a defensive copy so callers cannot mutate stored state.
func (u EmployeeOfferUsage) Clone() EmployeeOfferUsage {
	out := u
	out.DiscountCodes = append([]string(nil), u.DiscountCodes...)
	return out
}
