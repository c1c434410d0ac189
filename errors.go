package escrowmatch

import "errors"

// Error kinds surfaced through Malformed entries. The public
// operations never return a Go error directly; every recoverable
// failure is reported as a Malformed value wrapping one of these
// sentinels, so callers can classify with errors.Is.
var (
	// ErrNoOCKeys indicates Encrypt was called with an empty OC key
	// dictionary.
	ErrNoOCKeys = errors.New("no OC public keys provided")

	// ErrMissingFields indicates a record with an empty perpId or
	// userId.
	ErrMissingFields = errors.New("record is missing required fields")

	// ErrKeyDerivation indicates a derivation primitive failed for one
	// randId.
	ErrKeyDerivation = errors.New("key derivation failed")

	// ErrNotEnoughMatches indicates a decryption input with fewer
	// than two entries.
	ErrNotEnoughMatches = errors.New("not enough matches to decrypt")

	// ErrMatchingIndexSingleton indicates an entry whose matching
	// index appears only once in the input.
	ErrMatchingIndexSingleton = errors.New("matching index has no partner")

	// ErrAsymmetricDecrypt indicates a sealed-box open failure.
	ErrAsymmetricDecrypt = errors.New("asymmetric decryption failed")

	// ErrSymmetricDecrypt indicates an AEAD authentication failure.
	// During share pairing this is the signal for "wrong partner" and
	// is retried; only a share that fails against every partner
	// surfaces it.
	ErrSymmetricDecrypt = errors.New("symmetric decryption failed")

	// ErrImproperKeyLength indicates a symmetric key that is not
	// exactly 32 bytes.
	ErrImproperKeyLength = errors.New("improper key length")
)
