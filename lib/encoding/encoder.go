package encoding

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoder signs and seals snapshot material.
// It supports two modes:
//   - Signed (default): base64 msgpack + HMAC signature - visible but tamper-proof
//   - Encrypted: AES-256-GCM over msgpack - fully opaque
//
// Checksum and VerifyChecksum expose the bare HMAC for callers that carry
// the signed bytes themselves (the memo checksum).
type Encoder struct {
	key []byte
	gcm cipher.AEAD
}

// NewEncoder creates a new encoder with the given key.
// Keys shorter than 32 bytes are stretched with SHA-256.
func NewEncoder(key []byte) (*Encoder, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	if len(key) < 32 {
		h := sha256.Sum256(key)
		key = h[:]
	}

	block, err := aes.NewCipher(key[:32])
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Encoder{
		key: key,
		gcm: gcm,
	}, nil
}

// Pack marshals v to msgpack with map keys sorted, so equal values always
// produce equal bytes.
func Pack(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	// Decoded integers come back as int8, uint16 and so on; compact
	// encoding makes them pack to the same bytes as the original int.
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode serializes a value and returns an encoded string.
// If sensitive is true, the data is encrypted; otherwise it's signed.
func (e *Encoder) Encode(v any, sensitive bool) (string, error) {
	packed, err := Pack(v)
	if err != nil {
		return "", err
	}

	if sensitive {
		return e.encrypt(packed)
	}
	return e.sign(packed), nil
}

// Decode deserializes an encoded string into v.
// If sensitive is true, the data is decrypted; otherwise signature is verified.
func (e *Encoder) Decode(encoded string, sensitive bool, v any) error {
	packed, err := e.open(encoded, sensitive)
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(packed, v); err != nil {
		return ErrInvalidFormat
	}
	return nil
}

// Unchanged reports whether encoded already holds v. Encryption is not
// deterministic, so callers use this to keep an existing ciphertext instead
// of producing a new one for the same content.
func (e *Encoder) Unchanged(encoded string, sensitive bool, v any) bool {
	if encoded == "" {
		return false
	}
	packed, err := e.open(encoded, sensitive)
	if err != nil {
		return false
	}
	current, err := Pack(v)
	if err != nil {
		return false
	}
	return bytes.Equal(packed, current)
}

// Checksum returns the base64url HMAC-SHA256 (128 bits) of data.
func (e *Encoder) Checksum(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(e.mac(data))
}

// VerifyChecksum checks sum against data in constant time.
func (e *Encoder) VerifyChecksum(data []byte, sum string) error {
	sig, err := base64.RawURLEncoding.DecodeString(sum)
	if err != nil {
		return ErrInvalidFormat
	}
	if !hmac.Equal(sig, e.mac(data)) {
		return ErrSignatureInvalid
	}
	return nil
}

func (e *Encoder) mac(data []byte) []byte {
	mac := hmac.New(sha256.New, e.key)
	mac.Write(data)
	return mac.Sum(nil)[:16] // 16 bytes = 128 bits
}

func (e *Encoder) open(encoded string, sensitive bool) ([]byte, error) {
	if sensitive {
		return e.decrypt(encoded)
	}
	return e.verify(encoded)
}

// sign creates a signed (but visible) encoding: base64.signature
func (e *Encoder) sign(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data) + "." + e.Checksum(data)
}

// verify verifies and decodes a signed string
func (e *Encoder) verify(encoded string) ([]byte, error) {
	parts := strings.SplitN(encoded, ".", 2)
	if len(parts) != 2 {
		return nil, ErrInvalidFormat
	}

	data, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrInvalidFormat
	}

	if err := e.VerifyChecksum(data, parts[1]); err != nil {
		return nil, err
	}
	return data, nil
}

// encrypt creates an encrypted encoding using AES-256-GCM
func (e *Encoder) encrypt(data []byte) (string, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := e.gcm.Seal(nonce, nonce, data, nil)
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// decrypt decodes and decrypts an encrypted string
func (e *Encoder) decrypt(encoded string) ([]byte, error) {
	ciphertext, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidFormat
	}

	if len(ciphertext) < e.gcm.NonceSize() {
		return nil, ErrDecryptFailed
	}

	nonce := ciphertext[:e.gcm.NonceSize()]
	ciphertext = ciphertext[e.gcm.NonceSize():]

	plain, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}
