package calcpro

import (
	"fmt"
	"strings"

	"github.com/Ch4lkP0wd3r/CalcPro/audit"
	"github.com/Ch4lkP0wd3r/CalcPro/forensic"
)

// PinPolicy constrains the PINs accepted at setup time. The storage core
// itself places no bound on PIN shape; policy is a parameter of setup, not a
// hardcoded rule.
type PinPolicy struct {
	// MinLength is the minimum accepted PIN length. Zero disables the check.
	MinLength int `json:"min_length"`

	// DigitsOnly restricts PINs to the characters 0-9.
	DigitsOnly bool `json:"digits_only"`
}

// DefaultPinPolicy matches the setup screen: four or more digits.
func DefaultPinPolicy() PinPolicy {
	return PinPolicy{MinLength: 4, DigitsOnly: true}
}

// Check validates a candidate PIN against the policy.
func (p PinPolicy) Check(pin string) error {
	if len(pin) < p.MinLength {
		return fmt.Errorf("%w: minimum length is %d", ErrPinPolicy, p.MinLength)
	}
	if p.DigitsOnly && strings.Trim(pin, "0123456789") != "" {
		return fmt.Errorf("%w: digits only", ErrPinPolicy)
	}
	return nil
}

// Options represents configuration parameters for engine initialization.
//
// PINs themselves are never part of Options; they arrive per-operation and
// are held only inside protected memory for the lifetime of a session.
type Options struct {
	// BasePath is the storage directory used when the engine constructs
	// its own filesystem store. Ignored by NewWithStore.
	BasePath string `json:"base_path"`

	// PinPolicy applied at setup. Zero value disables all checks.
	PinPolicy PinPolicy `json:"pin_policy"`

	// Device identity stamped into forensic metadata of new evidence.
	Device forensic.DeviceInfo `json:"device"`

	// Audit configures audit logging; nil disables it.
	Audit *audit.Config `json:"audit,omitempty"`

	// EnableMemoryLock requests mlock of process memory while the engine
	// is open. Best-effort; failure to lock is not fatal.
	EnableMemoryLock bool `json:"enable_memory_lock"`
}

// Validate checks that the options are internally consistent.
func (o Options) Validate() error {
	if o.PinPolicy.MinLength < 0 {
		return fmt.Errorf("pin policy min length cannot be negative")
	}
	return nil
}
