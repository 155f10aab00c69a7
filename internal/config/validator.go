package config

import (
	"fmt"
	"regexp"
)

// Validator validates operator-supplied values before they reach the
// gate's stores
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

var toolNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateToolName checks a tool name. Names key files on disk, so
// path separators and hidden-file prefixes are rejected.
func (v *Validator) ValidateToolName(name string) error {
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if !toolNamePattern.MatchString(name) {
		return fmt.Errorf("invalid tool name %q", name)
	}
	return nil
}

// ValidatePermission checks a permission name against the closed set
func (v *Validator) ValidatePermission(name string) error {
	switch name {
	case "read", "write", "execute", "network", "system", "admin":
		return nil
	}
	return fmt.Errorf("unknown permission %q (must be: read, write, execute, network, system, admin)", name)
}

// ValidateDimension checks a resource dimension name
func (v *Validator) ValidateDimension(name string) error {
	switch name {
	case "memory_mb", "cpu_percent", "execution_time_sec", "file_size_mb", "network_requests":
		return nil
	}
	return fmt.Errorf("unknown resource dimension %q", name)
}

// ValidateContextPair checks a key=value context argument
func (v *Validator) ValidateContextPair(pair string) error {
	matched, _ := regexp.MatchString(`^[^=\s]+=[^=\s]+$`, pair)
	if !matched {
		return fmt.Errorf("invalid context pair %q (expected key=value)", pair)
	}
	return nil
}
