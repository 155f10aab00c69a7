// Package security enforces per-tool permission sets and resource
// ceilings before every tool invocation and records an immutable audit
// trail of security-relevant decisions.
//
// The ValidationGate orchestrates a PermissionStore, a ResourceTracker
// and an AuditLog: every Validate call walks permission and resource
// checks, then appends exactly one audit event before returning. A
// failed audit append fails the validation (fail-closed).
//
// Denials are ordinary Decision values so callers can branch without
// unwinding; only audit failures and malformed configuration are
// errors.
package security
