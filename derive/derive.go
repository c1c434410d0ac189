// Package derive turns a perpetrator pseudonym (the OPRF output
// randId) into the per-perpetrator key material: the share-line slope,
// the intercept key, and the matching index used for server-side
// bucketing.
package derive

import (
	"fmt"
	"math/big"

	escrowmatch "github.com/BackendStack21/escrowmatch-go"
	"github.com/BackendStack21/escrowmatch-go/codec"
	"github.com/BackendStack21/escrowmatch-go/core"
	"github.com/BackendStack21/escrowmatch-go/prims"
)

// Derived holds the values produced from one randId. Slope and Key
// are 32-byte strings; MatchingIndex is base64url. The raw byte forms
// are ephemeral and must never be persisted.
type Derived struct {
	// Slope is the a in y = a*x + k, as KDF output bytes. SlopeInt
	// converts it for field arithmetic.
	Slope []byte

	// Key is the intercept k, the secret reconstructed when two
	// submissions match.
	Key []byte

	// MatchingIndex is derived from both Slope and Key, so leaking
	// either alone reveals nothing about it.
	MatchingIndex string
}

// SlopeInt interprets the slope bytes as a little-endian integer.
// Reduction mod p happens on first use in field arithmetic.
func (d *Derived) SlopeInt() *big.Int {
	return codec.BytesToInt(d.Slope)
}

// KeyInt interprets the intercept bytes as a little-endian integer.
func (d *Derived) KeyInt() *big.Int {
	return codec.BytesToInt(d.Key)
}

// FromRandID derives (slope, key, matching index) from a 32-byte
// randId. Derivation is deterministic: the same randId always yields
// the same triple. Any primitive failure is reported as
// escrowmatch.ErrKeyDerivation.
func FromRandID(randID []byte) (*Derived, error) {
	if len(randID) != core.RandIDSize {
		return nil, fmt.Errorf("%w: randId must be %d bytes, got %d",
			escrowmatch.ErrKeyDerivation, core.RandIDSize, len(randID))
	}

	a, err := prims.KDFDeriveFromKey(core.KeySize, core.SubkeySlope, core.CtxSlope, randID)
	if err != nil {
		return nil, fmt.Errorf("%w: slope: %v", escrowmatch.ErrKeyDerivation, err)
	}
	k, err := prims.KDFDeriveFromKey(core.KeySize, core.SubkeyKey, core.CtxKey, randID)
	if err != nil {
		return nil, fmt.Errorf("%w: key: %v", escrowmatch.ErrKeyDerivation, err)
	}

	// The index binds both components, so neither a slope leak nor a
	// key leak reveals it on its own.
	ak, err := prims.GenericHash(core.MatchingIndexSize,
		[]byte(codec.Base64Encode(a)+codec.Base64Encode(k)))
	if err != nil {
		return nil, fmt.Errorf("%w: index preimage: %v", escrowmatch.ErrKeyDerivation, err)
	}
	idx, err := prims.KDFDeriveFromKey(core.MatchingIndexSize, core.SubkeyMatchingIndex, core.CtxMatchingIndex, ak)
	if err != nil {
		return nil, fmt.Errorf("%w: matching index: %v", escrowmatch.ErrKeyDerivation, err)
	}

	return &Derived{
		Slope:         a,
		Key:           k,
		MatchingIndex: codec.Base64Encode(idx),
	}, nil
}
