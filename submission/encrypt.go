// Package submission builds one user's encrypted submission set: a
// secret-sharing point, a freshly keyed record ciphertext, the edit
// path under the user passphrase, and a sealed copy of the share for
// every Options Counselor.
package submission

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	escrowmatch "github.com/BackendStack21/escrowmatch-go"
	"github.com/BackendStack21/escrowmatch-go/codec"
	"github.com/BackendStack21/escrowmatch-go/core"
	"github.com/BackendStack21/escrowmatch-go/derive"
	"github.com/BackendStack21/escrowmatch-go/field"
	"github.com/BackendStack21/escrowmatch-go/prims"
	"github.com/BackendStack21/escrowmatch-go/utils"
)

// Result is the outcome of one Encrypt call: the per-index, per-OC
// ciphertexts plus every recoverable failure.
type Result struct {
	EncryptedMap escrowmatch.EncryptedMap
	Malformed    []escrowmatch.Malformed
}

// Encrypt produces the submission set for one record under each of
// randIDs (one per alleged perpetrator). A failing randId is reported
// in Malformed with id "encryption" and does not abort the others.
// Precondition failures (empty OC dictionary, missing record fields)
// yield a single Malformed with id "All" and an empty map.
//
// Encrypt never returns a Go error; all failures are in
// Result.Malformed.
func Encrypt(randIDs [][]byte, record escrowmatch.Record, ocKeys escrowmatch.OCKeys, userPassphrase []byte) *Result {
	res := &Result{EncryptedMap: make(escrowmatch.EncryptedMap)}

	if len(ocKeys) == 0 {
		res.Malformed = append(res.Malformed, escrowmatch.Malformed{
			ID: escrowmatch.IDAll, Err: escrowmatch.ErrNoOCKeys,
		})
		return res
	}
	if record.PerpID == "" || record.UserID == "" {
		res.Malformed = append(res.Malformed, escrowmatch.Malformed{
			ID: escrowmatch.IDAll, Err: escrowmatch.ErrMissingFields,
		})
		return res
	}

	for _, randID := range randIDs {
		if err := encryptOne(randID, record, ocKeys, userPassphrase, res.EncryptedMap); err != nil {
			res.Malformed = append(res.Malformed, escrowmatch.Malformed{
				ID: escrowmatch.IDEncryption, Err: err,
			})
		}
	}
	return res
}

// encryptOne handles a single randId: derive, build the share, layer
// the three symmetric ciphertexts, and fan out to every OC.
func encryptOne(randID []byte, record escrowmatch.Record, ocKeys escrowmatch.OCKeys, userPassphrase []byte, out escrowmatch.EncryptedMap) error {
	d, err := derive.FromRandID(randID)
	if err != nil {
		return err
	}
	defer utils.Zeroize(d.Key)
	defer utils.Zeroize(d.Slope)
	pi := d.MatchingIndex

	// x = H(userId), interpreted big-endian.
	uh, err := prims.GenericHash(core.KeySize, []byte(record.UserID))
	if err != nil {
		return fmt.Errorf("hash userId: %w", err)
	}
	x := new(big.Int).SetBytes(uh)

	// y = slope*x + k mod p.
	slope := d.SlopeInt()
	k := d.KeyInt()
	y := new(big.Int).Mul(slope, x)
	y = field.RealMod(y.Add(y, k))
	defer utils.ZeroizeBig(slope)
	defer utils.ZeroizeBig(k)

	recordKey, err := prims.RandomKey()
	if err != nil {
		return fmt.Errorf("record key: %w", err)
	}
	defer utils.Zeroize(recordKey)
	recordKeyB64 := []byte(codec.Base64Encode(recordKey))

	eRecordKey, err := sealFramed(d.Key, recordKeyB64, core.ADRecordKey, pi)
	if err != nil {
		return fmt.Errorf("seal record key: %w", err)
	}
	eUser, err := sealFramed(userPassphrase, recordKeyB64, core.ADUserEdit, pi)
	if err != nil {
		return fmt.Errorf("seal user copy: %w", err)
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	eRecord, err := sealFramed(recordKey, recordJSON, core.ADRecord, pi)
	if err != nil {
		return fmt.Errorf("seal record: %w", err)
	}

	shareJSON, err := json.Marshal(escrowmatch.Share{
		X:          x.String(),
		Y:          y.String(),
		ERecordKey: eRecordKey,
	})
	if err != nil {
		return fmt.Errorf("marshal share: %w", err)
	}

	// One id across all per-OC copies of this submission.
	recordID := uuid.NewString()

	if out[pi] == nil {
		out[pi] = make(map[string][]*escrowmatch.EncryptedData)
	}
	for ocID, pk := range ocKeys {
		sealed, err := prims.SealedBoxSeal(shareJSON, pk)
		if err != nil {
			return fmt.Errorf("seal share for %s: %w", ocID, err)
		}
		out[pi][ocID] = append(out[pi][ocID], &escrowmatch.EncryptedData{
			ID:            recordID,
			MatchingIndex: pi,
			EOC:           codec.Base64Encode(sealed),
			EUser:         eUser,
			ERecord:       eRecord,
		})
	}
	return nil
}

// sealFramed AEAD-encrypts plaintext under key with the role AD bound
// to the matching index, returning the ct$nonce framing.
func sealFramed(key, plaintext []byte, role, matchingIndex string) (string, error) {
	ct, nonce, err := prims.AEADSeal(key, plaintext, []byte(role+matchingIndex))
	if err != nil {
		return "", err
	}
	return codec.Frame(ct, nonce), nil
}
