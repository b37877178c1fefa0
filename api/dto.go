/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the internal domain
  model from the external contract. Offers arrive in every request because
  they live in the external offer service; this engine holds no offer
  records of its own.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO:     Response types returned to clients

VALIDATION:
  Enum fields arrive as wire strings and are parsed into the closed domain
  variants in toOffer; a bad value is a 400, never a silent default.

SEE ALSO:
  - handlers.go: Uses these types
  - offer/: The domain model behind OfferDTO
*/
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/perks-engine/offer"
	"github.com/warp/perks-engine/usage"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// OfferDTO is the wire form of an offer record, as supplied by the external
// offer service.
type OfferDTO struct {
	ID                   string  `json:"id"`
	SupplierID           string  `json:"supplier_id"`
	UsageLimit           string  `json:"usage_limit"`
	UsesPerEmployee      int     `json:"uses_per_employee,omitempty"`
	RedemptionType       string  `json:"redemption_type"`
	DiscountCodeType     string  `json:"discount_code_type"`
	SupplierDiscountCode string  `json:"supplier_discount_code,omitempty"`
	DiscountPercentage   float64 `json:"discount_percentage"`
}

// toOffer parses the wire enums into closed domain variants.
func (d *OfferDTO) toOffer() (*offer.Offer, error) {
	limit, err := offer.ParseUsageLimit(d.UsageLimit)
	if err != nil {
		return nil, fmt.Errorf("usage_limit: %w", err)
	}
	rt, err := offer.ParseRedemptionType(d.RedemptionType)
	if err != nil {
		return nil, fmt.Errorf("redemption_type: %w", err)
	}
	ct, err := offer.ParseDiscountCodeType(d.DiscountCodeType)
	if err != nil {
		return nil, fmt.Errorf("discount_code_type: %w", err)
	}
	return &offer.Offer{
		ID:                   d.ID,
		SupplierID:           d.SupplierID,
		UsageLimit:           limit,
		UsesPerEmployee:      d.UsesPerEmployee,
		RedemptionType:       rt,
		DiscountCodeType:     ct,
		SupplierDiscountCode: d.SupplierDiscountCode,
		DiscountPercentage:   decimal.NewFromFloat(d.DiscountPercentage),
	}, nil
}

// RedeemRequest submits one redemption attempt.
type RedeemRequest struct {
	EmployeeID string   `json:"employee_id"`
	Role       string   `json:"role"`
	Offer      OfferDTO `json:"offer"`
}

// OfferStatusRequest asks for the eligibility view of one (employee, offer)
// pair. Read-only; safe to call on every page render.
type OfferStatusRequest struct {
	EmployeeID string   `json:"employee_id"`
	Offer      OfferDTO `json:"offer"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// RedeemResultDTO reports how a redemption attempt terminated.
type RedeemResultDTO struct {
	AttemptID string    `json:"attempt_id"`
	Outcome   string    `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	Code      string    `json:"code,omitempty"`
	Usage     *UsageDTO `json:"usage,omitempty"`
}

// OfferStatusDTO is the eligibility view for browsing/rendering.
type OfferStatusDTO struct {
	Allowed        bool   `json:"allowed"`
	Reason         string `json:"reason,omitempty"`
	Unlimited      bool   `json:"unlimited"`
	RemainingUses  int    `json:"remaining_uses"`
	HideFromBrowse bool   `json:"hide_from_browse"`
	StatusText     string `json:"status_text"`
}

// UsageDTO is the wire form of a usage record.
type UsageDTO struct {
	EmployeeID    string    `json:"employee_id"`
	OfferID       string    `json:"offer_id"`
	UsageCount    int       `json:"usage_count"`
	LastUsedAt    time.Time `json:"last_used_at"`
	DiscountCodes []string  `json:"discount_codes"`
	CreatedAt     time.Time `json:"created_at"`
}

func usageDTO(u usage.EmployeeOfferUsage) *UsageDTO {
	codes := u.DiscountCodes
	if codes == nil {
		codes = []string{}
	}
	return &UsageDTO{
		EmployeeID:    u.EmployeeID,
		OfferID:       u.OfferID,
		UsageCount:    u.UsageCount,
		LastUsedAt:    u.LastUsedAt,
		DiscountCodes: codes,
		CreatedAt:     u.CreatedAt,
	}
}

// AuthzCheckDTO answers the UI-gating queries for one role.
type AuthzCheckDTO struct {
	Role          string `json:"role"`
	Permission    string `json:"permission,omitempty"`
	HasPermission *bool  `json:"has_permission,omitempty"`
	Action        string `json:"action,omitempty"`
	CanPerform    *bool  `json:"can_perform,omitempty"`
	Path          string `json:"path,omitempty"`
	CanAccess     *bool  `json:"can_access,omitempty"`
}

// ErrorDTO is the JSON error envelope.
type ErrorDTO struct {
	Error string `json:"error"`
}
