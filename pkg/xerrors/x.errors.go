package xerrors

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// Sheet configuration
var (
	ErrMissingConfig    = errors.New("sheet configuration missing")
	ErrDuplicateMapping = errors.New("multiple headers mapped to the same member field")
	ErrColumnNotFound   = errors.New("required column not present in sheet")
)

// Tabular store
var (
	ErrStoreUnavailable = errors.New("tabular store unavailable")
)

// Authentication / password reset
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMemberNotFound     = errors.New("member not found")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("expired token")
)

// ProvisioningError is returned by the account provisioning client. Domain
// rejections (duplicate username/email, invalid field) carry Transport=false
// so callers can skip the row instead of treating the platform as down.
type ProvisioningError struct {
	Code      string
	Msg       string
	Transport bool
}

func (e *ProvisioningError) Error() string {
	if e.Transport {
		return fmt.Sprintf("provisioning transport error: %s", e.Msg)
	}
	return fmt.Sprintf("provisioning rejected (%s): %s", e.Code, e.Msg)
}

// IsProvisioningRejection reports whether err is a domain-level rejection
// from the provisioning platform.
func IsProvisioningRejection(err error) bool {
	var pe *ProvisioningError
	return errors.As(err, &pe) && !pe.Transport
}
