package hxwire

import (
	"errors"
	"fmt"

	"github.com/pthm/hxwire/lib/encoding"
)

// Encoder is an alias for encoding.Encoder for convenience.
type Encoder = encoding.Encoder

// NewEncoder creates a new encoder with the given key.
func NewEncoder(key []byte) (*Encoder, error) {
	return encoding.NewEncoder(key)
}

// wrapEncodingError maps encoding package errors onto hxwire sentinels.
// A bad signature on a memo means the checksum no longer matches.
func wrapEncodingError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, encoding.ErrInvalidFormat) {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if errors.Is(err, encoding.ErrSignatureInvalid) {
		return fmt.Errorf("%w: %v", ErrChecksumMismatch, err)
	}
	if errors.Is(err, encoding.ErrDecryptFailed) {
		return fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return err
}
