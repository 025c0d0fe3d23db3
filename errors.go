package hxwire

import (
	"errors"
	"fmt"

	"github.com/pthm/hxwire/lib/typecast"
)

// Sentinel errors for component round trips.
var (
	ErrComponentNotFound   = errors.New("hxwire: component not found")
	ErrRenderFailed        = errors.New("hxwire: render failed")
	ErrRootTagMissing      = errors.New("hxwire: render output must have exactly one root element")
	ErrFingerprintMismatch = errors.New("hxwire: fingerprint mismatch")
	ErrChecksumMismatch    = errors.New("hxwire: memo checksum mismatch")
	ErrDecryptFailed       = errors.New("hxwire: sealed state decryption failed")
	ErrInvalidFormat       = errors.New("hxwire: invalid snapshot format")
	ErrInvalidUpdate       = errors.New("hxwire: invalid update")
	ErrActionNotFound      = errors.New("hxwire: action not found")
	ErrUnresolvable        = errors.New("hxwire: argument cannot be resolved")
	ErrNotStateful         = errors.New("hxwire: component has no mutable state")

	// ErrInvalidArgumentType matches every argument coercion failure. The
	// concrete error is a *typecast.InvalidArgumentTypeError.
	ErrInvalidArgumentType = typecast.ErrInvalidArgumentType
)

// PhaseError records the pipeline phase and middleware that failed.
type PhaseError struct {
	Phase      Phase
	Middleware string
	Err        error
}

func (e *PhaseError) Error() string {
	if e.Middleware == "" {
		return fmt.Sprintf("hxwire: %s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("hxwire: %s: %s: %v", e.Phase, e.Middleware, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// IsNotFound checks if err is a component-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrComponentNotFound)
}

// IsStale reports whether err means the client submitted a snapshot the
// server no longer accepts: an identity mismatch, a checksum failure or
// sealed state that cannot be opened. Clients should reload the component.
func IsStale(err error) bool {
	return errors.Is(err, ErrFingerprintMismatch) ||
		errors.Is(err, ErrChecksumMismatch) ||
		errors.Is(err, ErrDecryptFailed) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsBadInput reports whether err was caused by malformed client input.
func IsBadInput(err error) bool {
	return errors.Is(err, ErrInvalidArgumentType) ||
		errors.Is(err, ErrInvalidUpdate) ||
		errors.Is(err, ErrActionNotFound)
}
