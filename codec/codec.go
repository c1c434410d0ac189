// Package codec converts between the engine's wire encodings: 256-bit
// little-endian integers, URL-safe unpadded base64, and the
// ciphertext-nonce framing used for every symmetric ciphertext.
package codec

import (
	"encoding/base64"
	"errors"
	"math/big"
	"strings"

	"github.com/BackendStack21/escrowmatch-go/core"
)

// IntSize is the byte length of the little-endian integer encoding.
const IntSize = 32

var (
	// ErrBadFrame indicates a symmetric ciphertext string that does
	// not split into exactly ciphertext and nonce.
	ErrBadFrame = errors.New("malformed ciphertext framing")

	// ErrBadBase64 indicates input that is not valid URL-safe
	// unpadded base64.
	ErrBadBase64 = errors.New("malformed base64")
)

// BytesToInt interprets b as a little-endian unsigned integer: the
// low byte is b[0].
func BytesToInt(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i, v := range b {
		be[len(b)-1-i] = v
	}
	return new(big.Int).SetBytes(be)
}

// IntToBytes produces the little-endian encoding of v in exactly
// IntSize bytes. Bits at position 256 and above are truncated, so the
// caller must ensure v < 2^256 when a round trip is required. The
// only value round-tripped by the protocol is the 32-byte intercept
// k, which always fits.
func IntToBytes(v *big.Int) []byte {
	be := v.Bytes()
	out := make([]byte, IntSize)
	n := len(be)
	if n > IntSize {
		be = be[n-IntSize:]
		n = IntSize
	}
	for i := 0; i < n; i++ {
		out[i] = be[n-1-i]
	}
	return out
}

// Base64Encode encodes with the URL-safe unpadded alphabet, the one
// encoding used on every boundary of the protocol.
func Base64Encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// Base64Decode decodes URL-safe unpadded base64.
func Base64Decode(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrBadBase64
	}
	return b, nil
}

// Frame encodes a symmetric ciphertext and its nonce as
// base64url(ct) + "$" + base64url(nonce). The separator is outside
// the base64url alphabet, so the split is unambiguous.
func Frame(ciphertext, nonce []byte) string {
	return Base64Encode(ciphertext) + core.FrameSeparator + Base64Encode(nonce)
}

// SplitFrame is the inverse of Frame. It also checks that the nonce
// has the AEAD nonce length.
func SplitFrame(framed string) (ciphertext, nonce []byte, err error) {
	parts := strings.Split(framed, core.FrameSeparator)
	if len(parts) != 2 {
		return nil, nil, ErrBadFrame
	}
	ciphertext, err = Base64Decode(parts[0])
	if err != nil {
		return nil, nil, err
	}
	nonce, err = Base64Decode(parts[1])
	if err != nil {
		return nil, nil, err
	}
	if len(nonce) != core.NonceSize {
		return nil, nil, ErrBadFrame
	}
	return ciphertext, nonce, nil
}
