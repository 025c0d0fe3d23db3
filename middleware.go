package hxwire

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"strconv"
)

// ChecksumMiddleware makes the memo tamper-evident.
//
// Registered first, it verifies the incoming memo before any other
// middleware reads it and, running last on the way out, signs the memo
// every other middleware has written. The signature covers the fingerprint
// id and name, binding the memo to one component instance.
type ChecksumMiddleware struct {
	enc *Encoder
}

// NewChecksumMiddleware creates the checksum middleware.
func NewChecksumMiddleware(enc *Encoder) *ChecksumMiddleware {
	return &ChecksumMiddleware{enc: enc}
}

func (m *ChecksumMiddleware) InitialHydrate(ctx context.Context, c Component, req *Request) error {
	return nil
}

func (m *ChecksumMiddleware) Hydrate(ctx context.Context, c Component, req *Request) error {
	sum := req.ServerMemo.Checksum()
	if sum == "" {
		return fmt.Errorf("%w: memo is not signed", ErrChecksumMismatch)
	}
	data, err := checksumInput(req.Fingerprint, req.ServerMemo)
	if err != nil {
		return err
	}
	return wrapEncodingError(m.enc.VerifyChecksum(data, sum))
}

func (m *ChecksumMiddleware) InitialDehydrate(ctx context.Context, c Component, res *Response) error {
	return m.sign(res)
}

func (m *ChecksumMiddleware) Dehydrate(ctx context.Context, c Component, res *Response) error {
	return m.sign(res)
}

func (m *ChecksumMiddleware) sign(res *Response) error {
	data, err := checksumInput(res.Fingerprint, res.Memo)
	if err != nil {
		return err
	}
	res.Memo[MemoChecksum] = m.enc.Checksum(data)
	return nil
}

// checksumInput is the JSON encoding of the signed material. JSON keeps the
// signature stable across the wire: a value written as int and read back as
// float64 encodes identically.
func checksumInput(fp Fingerprint, memo Memo) ([]byte, error) {
	data, err := json.Marshal(struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Memo Memo   `json:"memo"`
	}{fp.ID, fp.Name, memo.withoutChecksum()})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return data, nil
}

// SealedMiddleware carries Sealer state in the "sealed" region, encrypted.
type SealedMiddleware struct {
	enc *Encoder
}

// NewSealedMiddleware creates the sealed-state middleware.
func NewSealedMiddleware(enc *Encoder) *SealedMiddleware {
	return &SealedMiddleware{enc: enc}
}

func (m *SealedMiddleware) InitialHydrate(ctx context.Context, c Component, req *Request) error {
	return nil
}

func (m *SealedMiddleware) Hydrate(ctx context.Context, c Component, req *Request) error {
	s, ok := c.(Sealer)
	if !ok {
		return nil
	}
	raw, ok := req.ServerMemo[MemoSealed]
	if !ok {
		return s.Unseal(map[string]any{})
	}
	encoded, ok := raw.(string)
	if !ok {
		return fmt.Errorf("%w: sealed region is %T", ErrInvalidFormat, raw)
	}
	var state map[string]any
	if err := m.enc.Decode(encoded, true, &state); err != nil {
		return wrapEncodingError(err)
	}
	if state == nil {
		state = map[string]any{}
	}
	return s.Unseal(state)
}

func (m *SealedMiddleware) InitialDehydrate(ctx context.Context, c Component, res *Response) error {
	return m.seal(c, res)
}

func (m *SealedMiddleware) Dehydrate(ctx context.Context, c Component, res *Response) error {
	return m.seal(c, res)
}

func (m *SealedMiddleware) seal(c Component, res *Response) error {
	s, ok := c.(Sealer)
	if !ok {
		return nil
	}
	state := s.Sealed()
	if len(state) == 0 {
		delete(res.Memo, MemoSealed)
		return nil
	}
	// Keep the previous ciphertext when nothing changed, so an untouched
	// component round-trips to an identical memo.
	if prev, ok := res.Memo[MemoSealed].(string); ok && m.enc.Unchanged(prev, true, state) {
		return nil
	}
	encoded, err := m.enc.Encode(state, true)
	if err != nil {
		return fmt.Errorf("hxwire: seal state: %w", err)
	}
	res.Memo[MemoSealed] = encoded
	return nil
}

// ErrorBagMiddleware carries the error bag in the "errors" region.
type ErrorBagMiddleware struct{}

func (ErrorBagMiddleware) InitialHydrate(ctx context.Context, c Component, req *Request) error {
	if h, ok := c.(ErrorBagHolder); ok {
		h.ErrorBag().Clear()
	}
	return nil
}

func (ErrorBagMiddleware) Hydrate(ctx context.Context, c Component, req *Request) error {
	h, ok := c.(ErrorBagHolder)
	if !ok {
		return nil
	}
	msgs, err := errorBagFromMemo(req.ServerMemo[MemoErrors])
	if err != nil {
		return err
	}
	h.ErrorBag().Replace(msgs)
	return nil
}

func (m ErrorBagMiddleware) InitialDehydrate(ctx context.Context, c Component, res *Response) error {
	return m.Dehydrate(ctx, c, res)
}

func (ErrorBagMiddleware) Dehydrate(ctx context.Context, c Component, res *Response) error {
	h, ok := c.(ErrorBagHolder)
	if !ok {
		return nil
	}
	if bag := h.ErrorBag(); bag.IsEmpty() {
		res.Memo[MemoErrors] = []any{}
	} else {
		res.Memo[MemoErrors] = bag.Messages()
	}
	return nil
}

// PropertiesMiddleware carries Stateful public properties in the "data"
// region. Registered after the error bag and sealed state, so restored
// properties may depend on neither.
type PropertiesMiddleware struct{}

func (PropertiesMiddleware) InitialHydrate(ctx context.Context, c Component, req *Request) error {
	return nil
}

func (PropertiesMiddleware) Hydrate(ctx context.Context, c Component, req *Request) error {
	s, ok := c.(Stateful)
	if !ok {
		return nil
	}
	raw, ok := req.ServerMemo[MemoData]
	if !ok || raw == nil {
		return s.Restore(map[string]any{})
	}
	data, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: data region is %T", ErrInvalidFormat, raw)
	}
	return s.Restore(cloneValue(data).(map[string]any))
}

func (m PropertiesMiddleware) InitialDehydrate(ctx context.Context, c Component, res *Response) error {
	return m.Dehydrate(ctx, c, res)
}

func (PropertiesMiddleware) Dehydrate(ctx context.Context, c Component, res *Response) error {
	if s, ok := c.(Stateful); ok {
		res.Memo[MemoData] = s.Snapshot()
	}
	return nil
}

// EffectsMiddleware reports queued client events, navigation requests and
// a hash of the rendered markup. It writes effects only, never memo
// regions.
type EffectsMiddleware struct{}

func (EffectsMiddleware) InitialHydrate(ctx context.Context, c Component, req *Request) error {
	return nil
}

func (EffectsMiddleware) Hydrate(ctx context.Context, c Component, req *Request) error {
	return nil
}

func (m EffectsMiddleware) InitialDehydrate(ctx context.Context, c Component, res *Response) error {
	return m.Dehydrate(ctx, c, res)
}

func (EffectsMiddleware) Dehydrate(ctx context.Context, c Component, res *Response) error {
	if e, ok := c.(Emitter); ok {
		if emits := e.Emitted(); len(emits) > 0 {
			res.Effects["emits"] = emits
		}
	}
	if n, ok := c.(Navigator); ok {
		redirect, pushURL := n.Navigation()
		if redirect != "" {
			res.Effects["redirect"] = redirect
		}
		if pushURL != "" {
			res.Effects["pushUrl"] = pushURL
		}
	}
	if res.HTML != "" {
		res.Effects["htmlHash"] = strconv.FormatUint(uint64(crc32.ChecksumIEEE([]byte(res.HTML))), 16)
	}
	return nil
}
