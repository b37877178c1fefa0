/*
Package eligibility decides whether an employee may redeem a specific offer.

PURPOSE:
  Applies an offer's usage-limit policy against recorded usage to produce a
  redeem/deny decision with a human-readable reason, plus the derived
  read-only queries the browsing views need (remaining uses, hide hint,
  status text).

DECISION RULES:
  unlimited          always allowed
  once_per_employee  allowed iff never recorded
  multiple_uses      allowed iff count < resolved per-employee cap

PURITY:
  The evaluator only reads the usage store; it never writes. Denials are
  returned as values, never as errors - an exhausted offer is an expected
  business outcome. Only storage failures use the error channel.

SEE ALSO:
  - usage/: The store consulted here
  - redemption/: Orchestrates authorize -> evaluate -> record
*/
package eligibility

import (
	"context"
	"fmt"

	"github.com/warp/perks-engine/offer"
	"github.com/warp/perks-engine/usage"
)

// =============================================================================
// DECISION TYPES
// =============================================================================

// Decision is the outcome of an eligibility check.
type Decision struct {
	Allowed bool
	// Reason is set only on denial, phrased for direct display to the
	// employee.
	Reason string
}

var allowed = Decision{Allowed: true}

func denied(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Remaining reports how many redemptions an employee has left for an offer.
type Remaining struct {
	// Unlimited is true for offers with no per-employee cap; Uses is then
	// meaningless.
	Unlimited bool
	Uses      int
}

// =============================================================================
// EVALUATOR
// =============================================================================

// Evaluator answers eligibility queries for (employee, offer) pairs.
// All methods are read-only and safe for concurrent use.
type Evaluator struct {
	store usage.Store
}

func NewEvaluator(store usage.Store) *Evaluator {
	return &Evaluator{store: store}
}

// Evaluate applies the offer's usage-limit policy to the employee's recorded
// usage. A denial is a value, not an error; the error channel is reserved
// for storage failures.
func (e *Evaluator) Evaluate(ctx context.Context, employeeID string, o *offer.Offer) (Decision, error) {
	if o == nil {
		return Decision{}, usage.ErrOfferNotFound
	}

	switch o.UsageLimit {
	case offer.Unlimited:
		return allowed, nil

	case offer.OncePerEmployee:
		count, err := e.usageCount(ctx, employeeID, o.ID)
		if err != nil {
			return Decision{}, err
		}
		if count == 0 {
			return allowed, nil
		}
		return denied("offer already used, single-use only"), nil

	case offer.MultipleUses:
		count, err := e.usageCount(ctx, employeeID, o.ID)
		if err != nil {
			return Decision{}, err
		}
		max := o.ResolvedUsesPerEmployee()
		if count < max {
			return allowed, nil
		}
		return denied(fmt.Sprintf("offer usage limit reached, maximum %d per employee", max)), nil
	}

	// Unreachable while UsageLimit remains a closed set.
	return Decision{}, fmt.Errorf("unhandled usage limit %v", o.UsageLimit)
}

// RemainingUses reports the redemptions left for the pair. The reported
// count is floored at zero even if the store holds more recordings than the
// current offer configuration allows.
func (e *Evaluator) RemainingUses(ctx context.Context, employeeID string, o *offer.Offer) (Remaining, error) {
	if o == nil {
		return Remaining{}, usage.ErrOfferNotFound
	}

	if o.UsageLimit == offer.Unlimited {
		return Remaining{Unlimited: true}, nil
	}

	count, err := e.usageCount(ctx, employeeID, o.ID)
	if err != nil {
		return Remaining{}, err
	}

	max := 1
	if o.UsageLimit == offer.MultipleUses {
		max = o.ResolvedUsesPerEmployee()
	}
	left := max - count
	if left < 0 {
		left = 0
	}
	return Remaining{Uses: left}, nil
}

// ShouldHideFromBrowse is a presentation hint for the offer listing: hide
// single-use offers the employee has already redeemed. Computed here because
// it depends on the same state; consumed by an external listing view.
func (e *Evaluator) ShouldHideFromBrowse(ctx context.Context, employeeID string, o *offer.Offer) (bool, error) {
	if o == nil {
		return false, usage.ErrOfferNotFound
	}
	if o.UsageLimit != offer.OncePerEmployee {
		return false, nil
	}
	count, err := e.usageCount(ctx, employeeID, o.ID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// StatusText renders the pair's usage state for display.
func (e *Evaluator) StatusText(ctx context.Context, employeeID string, o *offer.Offer) (string, error) {
	if o == nil {
		return "", usage.ErrOfferNotFound
	}

	switch o.UsageLimit {
	case offer.Unlimited:
		return "unlimited use", nil

	case offer.OncePerEmployee:
		count, err := e.usageCount(ctx, employeeID, o.ID)
		if err != nil {
			return "", err
		}
		if count > 0 {
			return "used", nil
		}
		return "single use only", nil

	case offer.MultipleUses:
		rem, err := e.RemainingUses(ctx, employeeID, o)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d of %d remaining", rem.Uses, o.ResolvedUsesPerEmployee()), nil
	}

	return "", fmt.Errorf("unhandled usage limit %v", o.UsageLimit)
}

func (e *Evaluator) usageCount(ctx context.Context, employeeID, offerID string) (int, error) {
	rec, ok, err := e.store.Get(ctx, employeeID, offerID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return rec.UsageCount, nil
}
