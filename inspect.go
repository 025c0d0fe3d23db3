package hxwire

import (
	"context"
	"fmt"
)

// Inspection is the decoded content of a snapshot, for debugging.
type Inspection struct {
	Fingerprint Fingerprint    `json:"fingerprint"`
	Data        map[string]any `json:"data"`
	Errors      any            `json:"errors"`
	Sealed      map[string]any `json:"sealed,omitempty"`

	// ChecksumError is why the checksum did not verify, empty when it did.
	ChecksumError string `json:"checksumError,omitempty"`
}

// Inspect verifies the checksum of s and opens its sealed region with enc.
// A bad checksum is reported in the result rather than as an error, so a
// tampered snapshot can still be looked at.
func Inspect(enc *Encoder, s *Snapshot) (*Inspection, error) {
	out := &Inspection{
		Fingerprint: s.Fingerprint,
		Data:        s.ServerMemo.Data(),
		Errors:      s.ServerMemo[MemoErrors],
	}

	req := &Request{Fingerprint: s.Fingerprint, ServerMemo: s.ServerMemo}
	if err := NewChecksumMiddleware(enc).Hydrate(context.Background(), nil, req); err != nil {
		out.ChecksumError = err.Error()
	}

	raw, ok := s.ServerMemo[MemoSealed]
	if !ok {
		return out, nil
	}
	encoded, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: sealed region is %T", ErrInvalidFormat, raw)
	}
	if err := enc.Decode(encoded, true, &out.Sealed); err != nil {
		return nil, wrapEncodingError(err)
	}
	return out, nil
}
