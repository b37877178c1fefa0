package offer

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is the sentinel wrapped by ConfigError.
// Use errors.Is to classify; use errors.As to inspect the detail.
var ErrInvalidConfiguration = errors.New("invalid offer configuration")

// ConfigError describes a malformed offer record. These should be caught by
// validation in the offer service; when one reaches this engine it is fatal
// at the point of use, never silently accepted.
type ConfigError struct {
	OfferID string
	Field   string
	Detail  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("offer %q: invalid %s: %s", e.OfferID, e.Field, e.Detail)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}
