/*
Package redemption orchestrates a single redemption attempt.

PURPOSE:
  One pass through a fixed sequence, terminal on the first failure:

    1. Authorize:  may this actor perform redeem_offer at all?
    2. Evaluate:   can this employee redeem this specific offer?
    3. Generate:   derive the discount code (online offers only)
    4. Record:     write the usage - the last and only mutating step

  Authorization and eligibility denials are expected business outcomes and
  come back as Result values with a reason. Only storage failures and
  configuration errors use the error channel.

NO RETRIES HERE:
  A storage failure is surfaced to the caller, who decides whether to retry
  the whole attempt from step 1. Retrying only the write would act on stale
  eligibility.

SEE ALSO:
  - authz/: Step 1
  - eligibility/: Step 2
  - discount/: Step 3
  - usage/: Step 4
*/
package redemption

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/warp/perks-engine/authz"
	"github.com/warp/perks-engine/discount"
	"github.com/warp/perks-engine/eligibility"
	"github.com/warp/perks-engine/metrics"
	"github.com/warp/perks-engine/offer"
	"github.com/warp/perks-engine/usage"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// Outcome is the terminal state of a redemption attempt.
type Outcome string

const (
	// Recorded: both checks passed and the usage write succeeded.
	Recorded Outcome = "recorded"
	// Unauthorized: the actor's role cannot perform redeem_offer.
	// Not retryable without a role change.
	Unauthorized Outcome = "unauthorized"
	// LimitExceeded: eligibility denied. Not retryable without new
	// entitlement.
	LimitExceeded Outcome = "limit_exceeded"
)

// Actor is the already-authenticated identity attempting the redemption.
// Authentication happens upstream; this engine only sees the result.
type Actor struct {
	ID   string
	Role authz.Role
}

// Result describes how an attempt terminated.
type Result struct {
	// AttemptID identifies this attempt in logs and metrics.
	AttemptID string
	Outcome   Outcome
	// Reason is the human-readable denial reason, set for Unauthorized and
	// LimitExceeded.
	Reason string
	// Code is the discount code issued with a recorded online redemption.
	Code string
	// Usage is the updated snapshot after a recorded redemption.
	Usage usage.EmployeeOfferUsage
}

// =============================================================================
// COORDINATOR
// =============================================================================

// Coordinator wires the authorization engine, eligibility evaluator, code
// generator, and usage store into the redemption state machine.
type Coordinator struct {
	authz     *authz.Engine
	evaluator *eligibility.Evaluator
	generator *discount.Generator
	store     usage.Store
}

func NewCoordinator(engine *authz.Engine, ev *eligibility.Evaluator, gen *discount.Generator, store usage.Store) *Coordinator {
	return &Coordinator{
		authz:     engine,
		evaluator: ev,
		generator: gen,
		store:     store,
	}
}

// Redeem runs one redemption attempt for actor against o.
//
// Denials come back as Result values; err is non-nil only for faults:
// usage.ErrStorageFailure (retryable by restarting the attempt),
// offer.ErrInvalidConfiguration, and usage.ErrOfferNotFound.
func (c *Coordinator) Redeem(ctx context.Context, actor Actor, o *offer.Offer) (Result, error) {
	start := time.Now()
	res := Result{AttemptID: uuid.NewString()}
	outcome := "storage_failure"
	defer func() {
		metrics.RecordRedeemDuration(outcome, time.Since(start).Seconds())
	}()

	if o == nil {
		outcome = "offer_not_found"
		return res, usage.ErrOfferNotFound
	}
	if err := o.Validate(); err != nil {
		outcome = "invalid_configuration"
		log.Printf("redemption %s: rejected misconfigured offer %s: %v", res.AttemptID, o.ID, err)
		return res, err
	}

	// Step 1: authorize.
	if !c.authz.CanPerformAction(actor.Role, authz.ActionRedeemOffer) {
		res.Outcome = Unauthorized
		res.Reason = "role " + string(actor.Role) + " cannot redeem offers"
		outcome = string(Unauthorized)
		return res, nil
	}

	// Step 2: evaluate eligibility.
	decision, err := c.evaluator.Evaluate(ctx, actor.ID, o)
	if err != nil {
		outcome = classifyFault(err)
		return res, err
	}
	if !decision.Allowed {
		res.Outcome = LimitExceeded
		res.Reason = decision.Reason
		outcome = string(LimitExceeded)
		metrics.EligibilityDenials.WithLabelValues(o.UsageLimit.String()).Inc()
		return res, nil
	}

	// Step 3: derive the code for online offers. Branch redemptions carry
	// no code.
	var code string
	if o.RedemptionType == offer.Online {
		code, err = c.generator.CodeFor(o, actor.ID)
		if err != nil {
			outcome = "invalid_configuration"
			log.Printf("redemption %s: code generation failed for offer %s: %v", res.AttemptID, o.ID, err)
			return res, err
		}
	}

	// Step 4: record. The only mutating step, attempted only after both
	// checks pass. A timeout here is a storage failure like any other.
	snapshot, err := c.store.RecordUsage(ctx, actor.ID, o.ID, code)
	if err != nil {
		outcome = "storage_failure"
		log.Printf("redemption %s: usage write failed for (%s, %s): %v", res.AttemptID, actor.ID, o.ID, err)
		return res, wrapStorage(actor.ID, o.ID, err)
	}

	res.Outcome = Recorded
	res.Code = code
	res.Usage = snapshot
	outcome = string(Recorded)
	return res, nil
}

func classifyFault(err error) string {
	switch {
	case errors.Is(err, usage.ErrOfferNotFound):
		return "offer_not_found"
	case errors.Is(err, offer.ErrInvalidConfiguration):
		return "invalid_configuration"
	}
	return "storage_failure"
}

// wrapStorage normalizes backend write failures under ErrStorageFailure so
// callers classify with errors.Is regardless of the store implementation.
func wrapStorage(employeeID, offerID string, err error) error {
	if errors.Is(err, usage.ErrStorageFailure) {
		return err
	}
	return &usage.StorageError{
		Op:  "record",
		Key: usage.Key{EmployeeID: employeeID, OfferID: offerID},
		Err: err,
	}
}
