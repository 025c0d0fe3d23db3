package hxwire

import (
	"fmt"

	"github.com/google/uuid"
)

// Fingerprint identifies one component instance across round trips.
//
// The initial request assigns it; every later request carries it back
// unchanged. ID and Name are bound into the memo checksum, so a client
// cannot move a snapshot from one instance to another.
type Fingerprint struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Path   string `json:"path"`
	Method string `json:"method"`
}

// NewFingerprint builds the fingerprint for a freshly resolved component.
func NewFingerprint(c Component, info RequestInfo) Fingerprint {
	return Fingerprint{
		ID:     c.ComponentID(),
		Name:   c.ComponentName(),
		Path:   info.Path,
		Method: info.Method,
	}
}

// Validate checks that the fingerprint belongs to c and hands the
// fingerprint id to c. It must pass before any hydration runs.
func (f Fingerprint) Validate(c Component) error {
	if f.Name != c.ComponentName() {
		return fmt.Errorf("%w: fingerprint names %q, component is %q", ErrFingerprintMismatch, f.Name, c.ComponentName())
	}
	if _, err := uuid.Parse(f.ID); err != nil {
		return fmt.Errorf("%w: malformed id %q", ErrFingerprintMismatch, f.ID)
	}
	if ic, ok := c.(Identifiable); ok {
		ic.SetComponentID(f.ID)
		return nil
	}
	if c.ComponentID() != f.ID {
		return fmt.Errorf("%w: id %q does not match component", ErrFingerprintMismatch, f.ID)
	}
	return nil
}
