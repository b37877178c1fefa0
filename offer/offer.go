/*
Package offer defines the offer model consumed by the redemption engine.

PURPOSE:
  Offers are owned and mutated by the external offer service. This package
  defines the read-only shape the engine needs: identity, usage-limit policy,
  redemption channel, and discount-code configuration. The engine never
  writes an Offer.

KEY CONCEPTS:
  - UsageLimit: How many times one employee may redeem (unlimited,
    once per employee, or a configured number of uses)
  - RedemptionType: Online (code issued) vs. branch (redeemed in person)
  - DiscountCodeType: Auto-generated by the engine vs. fixed code
    supplied by the vendor

DESIGN PRINCIPLES:
  1. Closed variants: UsageLimit, RedemptionType and DiscountCodeType are
     typed enums, not open strings. An unhandled case is a compile-time
     switch omission, not a silent default branch.
  2. Precision: DiscountPercentage uses decimal.Decimal to avoid
     floating-point display drift.
  3. Validation at the boundary: Validate() surfaces configuration errors
     (e.g. missing supplier code) before any redemption path runs.

SEE ALSO:
  - eligibility/: Applies UsageLimit against recorded usage
  - discount/: Derives codes for online offers
*/
package offer

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CLOSED VARIANTS
// =============================================================================

// UsageLimit determines how many times a single employee may redeem an offer.
type UsageLimit int

const (
	// Unlimited places no cap on redemptions per employee.
	Unlimited UsageLimit = iota
	// OncePerEmployee allows exactly one redemption per employee, ever.
	OncePerEmployee
	// MultipleUses allows up to UsesPerEmployee redemptions per employee.
	MultipleUses
)

func (l UsageLimit) String() string {
	switch l {
	case Unlimited:
		return "unlimited"
	case OncePerEmployee:
		return "once_per_employee"
	case MultipleUses:
		return "multiple_uses"
	}
	return fmt.Sprintf("usage_limit(%d)", int(l))
}

// ParseUsageLimit converts the wire representation used by the offer service.
func ParseUsageLimit(s string) (UsageLimit, error) {
	switch s {
	case "unlimited":
		return Unlimited, nil
	case "once_per_employee":
		return OncePerEmployee, nil
	case "multiple_uses":
		return MultipleUses, nil
	}
	return Unlimited, fmt.Errorf("unknown usage limit %q", s)
}

// RedemptionType is the channel through which an offer is redeemed.
type RedemptionType int

const (
	// Online redemption issues a discount code for use on the vendor's site.
	Online RedemptionType = iota
	// Branch redemption happens in person; no code is issued.
	Branch
)

func (t RedemptionType) String() string {
	switch t {
	case Online:
		return "online"
	case Branch:
		return "branch"
	}
	return fmt.Sprintf("redemption_type(%d)", int(t))
}

// ParseRedemptionType converts the wire representation.
func ParseRedemptionType(s string) (RedemptionType, error) {
	switch s {
	case "online":
		return Online, nil
	case "branch":
		return Branch, nil
	}
	return Online, fmt.Errorf("unknown redemption type %q", s)
}

// DiscountCodeType states where an online offer's discount code comes from.
type DiscountCodeType int

const (
	// AutoGenerated codes are derived deterministically by the engine.
	AutoGenerated DiscountCodeType = iota
	// SupplierProvided codes are fixed strings configured by the vendor.
	SupplierProvided
)

func (t DiscountCodeType) String() string {
	switch t {
	case AutoGenerated:
		return "auto_generated"
	case SupplierProvided:
		return "supplier_provided"
	}
	return fmt.Sprintf("discount_code_type(%d)", int(t))
}

// ParseDiscountCodeType converts the wire representation.
func ParseDiscountCodeType(s string) (DiscountCodeType, error) {
	switch s {
	case "auto_generated":
		return AutoGenerated, nil
	case "supplier_provided":
		return SupplierProvided, nil
	}
	return AutoGenerated, fmt.Errorf("unknown discount code type %q", s)
}

// =============================================================================
// OFFER
// =============================================================================

// Offer is a read-only record supplied by the external offer service.
type Offer struct {
	ID         string
	SupplierID string

	UsageLimit UsageLimit
	// UsesPerEmployee is meaningful only when UsageLimit == MultipleUses.
	// Zero means unset; see ResolvedUsesPerEmployee.
	UsesPerEmployee int

	RedemptionType   RedemptionType
	DiscountCodeType DiscountCodeType
	// SupplierDiscountCode must be non-empty iff DiscountCodeType ==
	// SupplierProvided.
	SupplierDiscountCode string

	DiscountPercentage decimal.Decimal
}

// ResolvedUsesPerEmployee returns the effective per-employee cap for a
// MultipleUses offer. An unset cap resolves to 1, matching the offer
// service's lenient default for legacy records.
func (o *Offer) ResolvedUsesPerEmployee() int {
	if o.UsesPerEmployee <= 0 {
		return 1
	}
	return o.UsesPerEmployee
}

// Validate reports configuration errors that must not be silently accepted.
// It does not check business eligibility, only internal consistency.
func (o *Offer) Validate() error {
	if o.ID == "" {
		return &ConfigError{OfferID: o.ID, Field: "id", Detail: "offer id is required"}
	}
	if o.DiscountCodeType == SupplierProvided && o.SupplierDiscountCode == "" {
		return &ConfigError{
			OfferID: o.ID,
			Field:   "supplier_discount_code",
			Detail:  "supplier-provided offers must carry a non-empty code",
		}
	}
	if o.DiscountCodeType == AutoGenerated && o.SupplierDiscountCode != "" {
		return &ConfigError{
			OfferID: o.ID,
			Field:   "supplier_discount_code",
			Detail:  "auto-generated offers must not carry a supplier code",
		}
	}
	if o.DiscountPercentage.IsNegative() {
		return &ConfigError{
			OfferID: o.ID,
			Field:   "discount_percentage",
			Detail:  "discount percentage cannot be negative",
		}
	}
	return nil
}
