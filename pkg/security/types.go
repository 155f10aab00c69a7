package security

import (
	"encoding/json"
	"fmt"
	"time"
)

// Permission is a coarse-grained right gating tool invocation.
// The set of permissions is closed; unknown names are rejected at the
// boundary.
type Permission string

const (
	PermissionRead    Permission = "read"    // Can read data/files
	PermissionWrite   Permission = "write"   // Can modify data/files
	PermissionExecute Permission = "execute" // Can execute commands/tools
	PermissionNetwork Permission = "network" // Can make network requests
	PermissionSystem  Permission = "system"  // Can modify system settings
	PermissionAdmin   Permission = "admin"   // Full access (implies all above)
)

var permissionBits = map[Permission]uint8{
	PermissionRead:    1 << 0,
	PermissionWrite:   1 << 1,
	PermissionExecute: 1 << 2,
	PermissionNetwork: 1 << 3,
	PermissionSystem:  1 << 4,
	PermissionAdmin:   1 << 5,
}

// canonical ordering for serialization and display
var allPermissions = []Permission{
	PermissionRead,
	PermissionWrite,
	PermissionExecute,
	PermissionNetwork,
	PermissionSystem,
	PermissionAdmin,
}

// ParsePermission converts a string into a Permission, rejecting
// anything outside the closed set
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if _, ok := permissionBits[p]; !ok {
		return "", fmt.Errorf("%w: unknown permission %q", ErrConfiguration, s)
	}
	return p, nil
}

// PermissionSet is a set of granted permissions. The zero value is the
// empty set, which is also what an unknown tool holds.
type PermissionSet struct {
	bits uint8
}

// NewPermissionSet builds a set from the given permissions
func NewPermissionSet(perms ...Permission) PermissionSet {
	var s PermissionSet
	for _, p := range perms {
		s.bits |= permissionBits[p]
	}
	return s
}

// Has reports whether p is granted. Admin implies every permission.
func (s PermissionSet) Has(p Permission) bool {
	if s.bits&permissionBits[PermissionAdmin] != 0 {
		return true
	}
	return s.bits&permissionBits[p] != 0
}

// Contains reports whether every permission in other is granted
func (s PermissionSet) Contains(other PermissionSet) bool {
	if s.bits&permissionBits[PermissionAdmin] != 0 {
		return true
	}
	return s.bits&other.bits == other.bits
}

// IsEmpty reports whether no permission is granted
func (s PermissionSet) IsEmpty() bool {
	return s.bits == 0
}

// Permissions returns the granted permissions in canonical order
func (s PermissionSet) Permissions() []Permission {
	var perms []Permission
	for _, p := range allPermissions {
		if s.bits&permissionBits[p] != 0 {
			perms = append(perms, p)
		}
	}
	return perms
}

// Strings returns the granted permissions as strings in canonical order
func (s PermissionSet) Strings() []string {
	perms := s.Permissions()
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p))
	}
	return out
}

// MarshalJSON encodes the set as a string array
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes a string array, rejecting unknown names
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}

	var set PermissionSet
	for _, name := range names {
		p, err := ParsePermission(name)
		if err != nil {
			return err
		}
		set.bits |= permissionBits[p]
	}

	*s = set
	return nil
}

// ResourceLimit holds per-tool resource ceilings. A nil field means
// unlimited for that dimension.
type ResourceLimit struct {
	MaxMemoryMB         *float64 `json:"max_memory_mb,omitempty"`
	MaxCPUPercent       *float64 `json:"max_cpu_percent,omitempty"`
	MaxExecutionTimeSec *float64 `json:"max_execution_time_sec,omitempty"`
	MaxFileSizeMB       *float64 `json:"max_file_size_mb,omitempty"`
	MaxNetworkRequests  *float64 `json:"max_network_requests,omitempty"`
	AllowedDomains      []string `json:"allowed_domains,omitempty"`
	AllowedPaths        []string `json:"allowed_paths,omitempty"`
}

// Usage dimension names accepted in a UsageSample
const (
	DimMemoryMB         = "memory_mb"
	DimCPUPercent       = "cpu_percent"
	DimExecutionTimeSec = "execution_time_sec"
	DimFileSizeMB       = "file_size_mb"
	DimNetworkRequests  = "network_requests"
)

// limit returns the configured ceiling for a dimension, or nil when the
// dimension is unset or unknown
func (rl *ResourceLimit) limit(dim string) *float64 {
	switch dim {
	case DimMemoryMB:
		return rl.MaxMemoryMB
	case DimCPUPercent:
		return rl.MaxCPUPercent
	case DimExecutionTimeSec:
		return rl.MaxExecutionTimeSec
	case DimFileSizeMB:
		return rl.MaxFileSizeMB
	case DimNetworkRequests:
		return rl.MaxNetworkRequests
	}
	return nil
}

// clone returns a deep copy
func (rl *ResourceLimit) clone() *ResourceLimit {
	if rl == nil {
		return nil
	}
	cp := *rl
	copyFloat := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		f := *v
		return &f
	}
	cp.MaxMemoryMB = copyFloat(rl.MaxMemoryMB)
	cp.MaxCPUPercent = copyFloat(rl.MaxCPUPercent)
	cp.MaxExecutionTimeSec = copyFloat(rl.MaxExecutionTimeSec)
	cp.MaxFileSizeMB = copyFloat(rl.MaxFileSizeMB)
	cp.MaxNetworkRequests = copyFloat(rl.MaxNetworkRequests)
	cp.AllowedDomains = append([]string(nil), rl.AllowedDomains...)
	cp.AllowedPaths = append([]string(nil), rl.AllowedPaths...)
	return &cp
}

// UsageSample is the projected or actual resource usage supplied at
// validation or recording time. Dimensions without a configured limit
// are ignored outside strict mode.
type UsageSample struct {
	Dimensions map[string]float64 `json:"dimensions,omitempty"`
	Domain     string             `json:"domain,omitempty"`
	Path       string             `json:"path,omitempty"`
}

// IsEmpty reports whether the sample carries no usage information
func (u UsageSample) IsEmpty() bool {
	return len(u.Dimensions) == 0 && u.Domain == "" && u.Path == ""
}

// EventType classifies a security event
type EventType string

const (
	EventPermissionCheck EventType = "permission_check"
	EventResourceCheck   EventType = "resource_check"
	EventViolation       EventType = "violation"
	EventConfigChange    EventType = "config_change"
)

// Outcome of a security decision
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeDeny  Outcome = "deny"
)

// SecurityEvent is an immutable record of a security-relevant decision
type SecurityEvent struct {
	ID        string                 `json:"id"`
	ToolName  string                 `json:"tool_name"`
	Type      EventType              `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	Outcome   Outcome                `json:"outcome"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Denial reasons carried in a Decision
const (
	ReasonInsufficientPermission = "insufficient_permission"
	ReasonResourceExceeded       = "resource_exceeded"
	ReasonUnknownLimit           = "unknown_limit"
)

// Decision is the outcome of a validation. Denials are ordinary result
// values, not errors, so callers can branch without unwinding.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	Dimension string `json:"dimension,omitempty"`
	AttemptID string `json:"attempt_id,omitempty"`
}

func allowed() Decision {
	return Decision{Allowed: true}
}

func denied(reason, dimension string) Decision {
	return Decision{Allowed: false, Reason: reason, Dimension: dimension}
}
