/*
Package discount derives discount codes for online-redemption offers.

PURPOSE:
  Two code sources, selected by the offer's configuration:
  - supplier_provided: the vendor's fixed code, returned verbatim
  - auto_generated:    derived deterministically from the (offer, employee)
    pair and the discount percentage

DETERMINISM:
  CodeFor is a pure function of (offerID, employeeID, discountPercentage).
  The same pair always yields the same code, so a code can be regenerated
  for display at any time without storing it first. Distinct pairs are
  unlikely to collide given reasonable identifier entropy.

  This package never consults or mutates the usage store.

SEE ALSO:
  - offer/: DiscountCodeType and validation
  - redemption/: Calls CodeFor before recording an online redemption
*/
package discount

import (
	"strings"

	"github.com/warp/perks-engine/offer"
)

// prefixLen is how many leading identifier characters feed the derived code.
const prefixLen = 4

// Generator derives discount codes. Stateless and safe for concurrent use.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// CodeFor returns the discount code to issue for an online redemption of o
// by employeeID.
//
// Supplier-provided offers return the configured code verbatim; an empty
// configured code is a configuration error, surfaced as
// offer.ErrInvalidConfiguration rather than silently accepted.
func (g *Generator) CodeFor(o *offer.Offer, employeeID string) (string, error) {
	if o == nil {
		return "", &offer.ConfigError{Field: "offer", Detail: "offer is required"}
	}

	switch o.DiscountCodeType {
	case offer.SupplierProvided:
		if o.SupplierDiscountCode == "" {
			return "", &offer.ConfigError{
				OfferID: o.ID,
				Field:   "supplier_discount_code",
				Detail:  "supplier-provided offers must carry a non-empty code",
			}
		}
		return o.SupplierDiscountCode, nil

	case offer.AutoGenerated:
		return deriveCode(o, employeeID), nil
	}

	return "", &offer.ConfigError{
		OfferID: o.ID,
		Field:   "discount_code_type",
		Detail:  "unknown discount code type",
	}
}

// deriveCode combines an offer-ID prefix, an employee-ID prefix, and the
// discount percentage into an upper-cased code, e.g. "OFFR-EMPL-15".
func deriveCode(o *offer.Offer, employeeID string) string {
	parts := []string{
		idPrefix(o.ID),
		idPrefix(employeeID),
		o.DiscountPercentage.String(),
	}
	return strings.ToUpper(strings.Join(parts, "-"))
}

// idPrefix takes the leading characters of an identifier, skipping
// separators so "emp-1" contributes "emp1", not "emp-".
func idPrefix(id string) string {
	var b strings.Builder
	for _, r := range id {
		if r == '-' || r == '_' {
			continue
		}
		b.WriteRune(r)
		if b.Len() >= prefixLen {
			break
		}
	}
	if b.Len() == 0 {
		return "X"
	}
	return b.String()
}
