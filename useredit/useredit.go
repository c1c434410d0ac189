// Package useredit implements the submitter's own access to a
// submission: reading the record back and rewriting it in place,
// using only the user passphrase. No counselor and no second
// submission is involved.
package useredit

import (
	"encoding/json"

	escrowmatch "github.com/BackendStack21/escrowmatch-go"
	"github.com/BackendStack21/escrowmatch-go/codec"
	"github.com/BackendStack21/escrowmatch-go/core"
	"github.com/BackendStack21/escrowmatch-go/prims"
	"github.com/BackendStack21/escrowmatch-go/utils"
)

// Result is the outcome of DecryptUserRecord. Each per-OC copy is
// attempted independently, so a submission fanned out to n OCs yields
// up to n identical records.
type Result struct {
	Records   []escrowmatch.Record
	Malformed []escrowmatch.Malformed
}

// DecryptUserRecord opens every entry's record through the user edit
// path: unwrap the record key from eUser under the passphrase, then
// open eRecord. Failures are reported per entry and do not halt the
// iteration.
func DecryptUserRecord(passphrase []byte, entries []*escrowmatch.EncryptedData) *Result {
	res := &Result{}
	for _, e := range entries {
		recordKey, err := unwrapRecordKey(passphrase, e)
		if err != nil {
			res.Malformed = append(res.Malformed, escrowmatch.Malformed{ID: e.ID, Err: err})
			continue
		}
		record, err := openRecord(recordKey, e)
		utils.Zeroize(recordKey)
		if err != nil {
			res.Malformed = append(res.Malformed, escrowmatch.Malformed{ID: e.ID, Err: err})
			continue
		}
		res.Records = append(res.Records, *record)
	}
	return res
}

// UpdateUserRecord rewrites each entry's eRecord in place with the
// new plaintext under the entry's existing record key and a fresh
// nonce. eUser and the sealed shares are untouched, so the submission
// still pairs and still decrypts for the OCs. A newRecord with empty
// fields is rejected up front with a single "All" entry.
func UpdateUserRecord(passphrase []byte, entries []*escrowmatch.EncryptedData, newRecord escrowmatch.Record) []escrowmatch.Malformed {
	if newRecord.PerpID == "" || newRecord.UserID == "" {
		return []escrowmatch.Malformed{{ID: escrowmatch.IDAll, Err: escrowmatch.ErrMissingFields}}
	}

	recordJSON, err := json.Marshal(newRecord)
	if err != nil {
		return []escrowmatch.Malformed{{ID: escrowmatch.IDAll, Err: err}}
	}

	var malformed []escrowmatch.Malformed
	for _, e := range entries {
		recordKey, err := unwrapRecordKey(passphrase, e)
		if err != nil {
			malformed = append(malformed, escrowmatch.Malformed{ID: e.ID, Err: err})
			continue
		}
		ct, nonce, err := prims.AEADSeal(recordKey, recordJSON, []byte(core.ADRecord+e.MatchingIndex))
		utils.Zeroize(recordKey)
		if err != nil {
			malformed = append(malformed, escrowmatch.Malformed{ID: e.ID, Err: err})
			continue
		}
		e.ERecord = codec.Frame(ct, nonce)
	}
	return malformed
}

// unwrapRecordKey opens eUser under the passphrase and decodes the
// raw 32-byte record key. The AEAD plaintext is the base64 form, so
// one decode stands between the passphrase and the key.
func unwrapRecordKey(passphrase []byte, e *escrowmatch.EncryptedData) ([]byte, error) {
	ct, nonce, err := codec.SplitFrame(e.EUser)
	if err != nil {
		return nil, escrowmatch.ErrSymmetricDecrypt
	}
	keyB64, err := prims.AEADOpen(passphrase, ct, nonce, []byte(core.ADUserEdit+e.MatchingIndex))
	if err != nil {
		return nil, err
	}
	recordKey, err := codec.Base64Decode(string(keyB64))
	if err != nil {
		return nil, escrowmatch.ErrSymmetricDecrypt
	}
	return recordKey, nil
}

// openRecord decrypts eRecord under the unwrapped record key.
func openRecord(recordKey []byte, e *escrowmatch.EncryptedData) (*escrowmatch.Record, error) {
	ct, nonce, err := codec.SplitFrame(e.ERecord)
	if err != nil {
		return nil, escrowmatch.ErrSymmetricDecrypt
	}
	plain, err := prims.AEADOpen(recordKey, ct, nonce, []byte(core.ADRecord+e.MatchingIndex))
	if err != nil {
		return nil, err
	}
	var record escrowmatch.Record
	if err := json.Unmarshal(plain, &record); err != nil {
		return nil, escrowmatch.ErrSymmetricDecrypt
	}
	return &record, nil
}
