package security

import "errors"

var (
	// ErrConfiguration is returned for malformed permission or limit
	// input, rejected before any state mutation
	ErrConfiguration = errors.New("invalid security configuration")

	// ErrAuditWrite is returned when the audit trail cannot be
	// written. Validation fails closed on this error.
	ErrAuditWrite = errors.New("audit write failed")
)
