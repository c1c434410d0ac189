// Package prims binds the crypto primitives the escrow engine is
// built on: XChaCha20-Poly1305 AEAD, anonymous sealed boxes
// (X25519 + XSalsa20-Poly1305), a BLAKE2b derive-from-key KDF,
// BLAKE2b generic hashing, and the system CSPRNG.
package prims

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/nacl/box"

	escrowmatch "github.com/BackendStack21/escrowmatch-go"
	"github.com/BackendStack21/escrowmatch-go/core"
	"github.com/BackendStack21/escrowmatch-go/utils"
)

// ErrSealedBoxOpen indicates a sealed box that did not open under the
// supplied keypair.
var ErrSealedBoxOpen = errors.New("sealed box open failed")

// checkKey enforces the 32-byte symmetric key contract shared by
// every AEAD call site.
func checkKey(key []byte) error {
	if len(key) != core.KeySize {
		return fmt.Errorf("%w: got %d bytes, want %d",
			escrowmatch.ErrImproperKeyLength, len(key), core.KeySize)
	}
	return nil
}

// AEADSeal encrypts plaintext under key with a fresh random 24-byte
// nonce, authenticating ad. It returns the ciphertext (with appended
// tag) and the nonce.
func AEADSeal(key, plaintext, ad []byte) (ciphertext, nonce []byte, err error) {
	if err := checkKey(key); err != nil {
		return nil, nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, err
	}
	nonce, err = utils.SecureRandomBytes(core.NonceSize)
	if err != nil {
		return nil, nil, err
	}
	return aead.Seal(nil, nonce, plaintext, ad), nonce, nil
}

// AEADOpen decrypts and authenticates a ciphertext produced by
// AEADSeal. Authentication failure is reported as
// escrowmatch.ErrSymmetricDecrypt.
func AEADOpen(key, ciphertext, nonce, ad []byte) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != core.NonceSize {
		return nil, escrowmatch.ErrSymmetricDecrypt
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, ad)
	if err != nil {
		return nil, escrowmatch.ErrSymmetricDecrypt
	}
	return plaintext, nil
}

// SealedBoxSeal encrypts message to the recipient public key with an
// ephemeral sender key. Only the recipient is authenticated.
func SealedBoxSeal(message []byte, pk *[32]byte) ([]byte, error) {
	return box.SealAnonymous(nil, message, pk, utils.RandReader)
}

// SealedBoxOpen opens a sealed box with the recipient keypair.
func SealedBoxOpen(sealed []byte, pk, sk *[32]byte) ([]byte, error) {
	plaintext, ok := box.OpenAnonymous(nil, sealed, pk, sk)
	if !ok {
		return nil, ErrSealedBoxOpen
	}
	return plaintext, nil
}

// GenerateBoxKeyPair mints a fresh sealed-box keypair, e.g. an OC
// identity.
func GenerateBoxKeyPair() (pk, sk *[32]byte, err error) {
	return box.GenerateKey(utils.RandReader)
}

// KDFDeriveFromKey derives an outLen-byte subkey from a 32-byte
// master key, domain-separated by the subkey id and an 8-byte
// context. The construction is keyed BLAKE2b over
// LE64(subkeyID) || context; the context string is normalized to
// exactly 8 bytes first. Deterministic: equal inputs always yield
// equal subkeys.
func KDFDeriveFromKey(outLen int, subkeyID uint64, ctx string, master []byte) ([]byte, error) {
	if err := checkKey(master); err != nil {
		return nil, err
	}
	if outLen < 1 || outLen > blake2b.Size {
		return nil, fmt.Errorf("kdf output length %d out of range", outLen)
	}
	h, err := blake2b.New(outLen, master)
	if err != nil {
		return nil, err
	}
	var id [8]byte
	binary.LittleEndian.PutUint64(id[:], subkeyID)
	h.Write(id[:])
	h.Write(core.NormalizeContext(ctx))
	return h.Sum(nil), nil
}

// GenericHash computes an unkeyed BLAKE2b digest of outLen bytes.
func GenericHash(outLen int, data []byte) ([]byte, error) {
	if outLen < 1 || outLen > blake2b.Size {
		return nil, fmt.Errorf("hash output length %d out of range", outLen)
	}
	h, err := blake2b.New(outLen, nil)
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return h.Sum(nil), nil
}

// RandomKey draws a fresh 32-byte symmetric key from the CSPRNG.
func RandomKey() ([]byte, error) {
	return utils.SecureRandomBytes(core.KeySize)
}
