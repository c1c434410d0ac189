// Package core provides the protocol constants and validation for the
// matching-escrow engine.
package core

import (
	"errors"
	"math/big"
	"strings"
)

// Sizes, in bytes.
const (
	// KeySize is the length of every symmetric key: AEAD keys, the
	// derived intercept k, record keys, and user passphrase material.
	KeySize = 32

	// NonceSize is the XChaCha20-Poly1305 nonce length.
	NonceSize = 24

	// RandIDSize is the length of the OPRF-derived perpetrator
	// pseudonym this engine receives.
	RandIDSize = 32

	// MatchingIndexSize is the length of the raw matching index
	// before base64 encoding.
	MatchingIndexSize = 32

	// BoxPublicKeySize and BoxSecretKeySize are the sealed-box key
	// lengths.
	BoxPublicKeySize = 32
	BoxSecretKeySize = 32
)

// KDF subkey ids, one per derived value.
const (
	SubkeySlope         uint64 = 1
	SubkeyKey           uint64 = 2
	SubkeyMatchingIndex uint64 = 3
)

// KDF context strings. Contexts are normalized to exactly
// KDFContextSize bytes (truncate or zero-pad) before use, on every
// endpoint, so the full strings are stable protocol constants even
// though only their prefixes enter the KDF.
const (
	KDFContextSize = 8

	CtxSlope         = "slope derivation"
	CtxKey           = "key derivation"
	CtxMatchingIndex = "matching index derivation"
)

// AEAD additional-data role prefixes. Each is concatenated with the
// matching index, so a ciphertext authenticates both its role and its
// bucket; decrypting under the wrong role or the wrong matching index
// fails authentication.
const (
	ADRecordKey = "record key"
	ADUserEdit  = "user edit"
	ADRecord    = "record"
)

// FrameSeparator splits ciphertext from nonce in the symmetric
// framing base64url(ct) + "$" + base64url(nonce). The character is
// outside the base64url alphabet.
const FrameSeparator = "$"

// fieldPrimeDecimal is 2^256 + 297, a prime just above 2^256. Every
// 256-bit hash output and every 256-bit key is a valid residue.
const fieldPrimeDecimal = "115792089237316195423570985008687907853269984665640564039457584007913129640233"

var fieldPrime *big.Int

func init() {
	p, ok := new(big.Int).SetString(fieldPrimeDecimal, 10)
	if !ok {
		panic("core: invalid field prime constant")
	}
	fieldPrime = p
}

// FieldPrime returns a fresh copy of the field modulus p = 2^256 + 297.
func FieldPrime() *big.Int {
	return new(big.Int).Set(fieldPrime)
}

// ValidateParams checks the protocol constants for internal
// consistency. It is cheap and intended to run once at startup.
func ValidateParams() error {
	if KeySize != 32 {
		return errors.New("symmetric key size must be 32 bytes")
	}
	if NonceSize != 24 {
		return errors.New("nonce size must be 24 bytes")
	}
	two256 := new(big.Int).Lsh(big.NewInt(1), 256)
	if fieldPrime.Cmp(two256) <= 0 {
		return errors.New("field prime must exceed 2^256")
	}
	if !fieldPrime.ProbablyPrime(32) {
		return errors.New("field modulus must be prime")
	}
	if ADRecordKey == ADUserEdit || ADRecordKey == ADRecord || ADUserEdit == ADRecord {
		return errors.New("AEAD role strings must be distinct")
	}
	const base64URLAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	if strings.Contains(base64URLAlphabet, FrameSeparator) {
		return errors.New("frame separator must not be a base64url character")
	}
	if SubkeySlope == SubkeyKey || SubkeySlope == SubkeyMatchingIndex || SubkeyKey == SubkeyMatchingIndex {
		return errors.New("KDF subkey ids must be distinct")
	}
	return nil
}

// NormalizeContext truncates or zero-pads a KDF context string to
// exactly KDFContextSize bytes.
func NormalizeContext(ctx string) []byte {
	out := make([]byte, KDFContextSize)
	copy(out, ctx)
	return out
}
