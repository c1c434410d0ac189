// Package counselor implements the reviewer side of the escrow: it
// opens an OC's view of a submission bucket, pairs shares that lie on
// the same secret-sharing line, reconstructs the intercept key and
// recovers the records. Malformed or unmatched entries are reported
// and never abort the rest of the batch.
package counselor

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	escrowmatch "github.com/BackendStack21/escrowmatch-go"
	"github.com/BackendStack21/escrowmatch-go/codec"
	"github.com/BackendStack21/escrowmatch-go/core"
	"github.com/BackendStack21/escrowmatch-go/field"
	"github.com/BackendStack21/escrowmatch-go/prims"
	"github.com/BackendStack21/escrowmatch-go/utils"
)

// Debug logging helpers
var debugPair = os.Getenv("DEBUG_ESCROWMATCH") != ""

func logPair(format string, args ...interface{}) {
	if debugPair {
		fmt.Fprintf(os.Stderr, "[escrowmatch] "+format+"\n", args...)
	}
}

// Result is the outcome of one Decrypt call.
type Result struct {
	Records   []escrowmatch.Record
	Malformed []escrowmatch.Malformed
}

// openShare is one successfully unsealed submission, ready for
// pairing.
type openShare struct {
	id            string
	point         field.Point
	eRecordKey    string
	eRecord       string
	matchingIndex string
}

// Decrypt opens one OC's view of a bucket of submissions. The input
// may mix multiple matching indices; entries whose index has no
// partner are flagged and skipped. Any two well-formed shares with
// the same matching index reconstruct the intercept key, and AEAD
// authentication against the index is the authoritative signal that a
// candidate pair belongs together.
//
// Decrypt never returns a Go error; all failures are reported in
// Result.Malformed, keyed by submission id.
func Decrypt(entries []*escrowmatch.EncryptedData, pkOC, skOC *[32]byte) *Result {
	res := &Result{}

	buckets, malformed := Bucket(entries)
	res.Malformed = malformed
	if len(buckets) == 0 {
		return res
	}

	pending := make(map[string]*openShare)
	for _, group := range buckets {
		for _, e := range group {
			s, err := unsealShare(e, pkOC, skOC)
			if err != nil {
				res.Malformed = append(res.Malformed, escrowmatch.Malformed{
					ID: e.ID, Err: err,
				})
				continue
			}
			pending[s.id] = s
		}
	}
	if len(pending) < 2 {
		return res
	}

	decrypted := make(map[string]*openShare)
	for len(pending) > 0 {
		var i1 string
		var s1 *openShare
		for id, s := range pending {
			i1, s1 = id, s
			break
		}

		matched := false

		// A share already proven correct can vouch for the pivot on
		// its own: the reconstructed key authenticates against the
		// pivot's matching index.
		for i2, s2 := range decrypted {
			key, ok := candidateKey(s1, s2)
			if !ok {
				continue
			}
			recordKey, err := openRecordKey(s1, key)
			utils.Zeroize(key)
			if err != nil {
				continue
			}
			logPair("share %s matched decrypted partner %s", i1, i2)
			emitRecord(res, s1, recordKey)
			decrypted[i1] = s1
			matched = true
			break
		}

		if !matched {
			for i2, s2 := range pending {
				if i2 == i1 {
					continue
				}
				key, ok := candidateKey(s1, s2)
				if !ok {
					continue
				}
				// Both sides must authenticate before either record
				// is trusted.
				rk1, err1 := openRecordKey(s1, key)
				rk2, err2 := openRecordKey(s2, key)
				utils.Zeroize(key)
				if err1 != nil || err2 != nil {
					utils.Zeroize(rk1)
					utils.Zeroize(rk2)
					continue
				}
				logPair("shares %s and %s reconstructed a key", i1, i2)
				emitRecord(res, s1, rk1)
				emitRecord(res, s2, rk2)
				decrypted[i1] = s1
				decrypted[i2] = s2
				delete(pending, i2)
				matched = true
				break
			}
		}

		if !matched {
			logPair("share %s found no partner", i1)
			res.Malformed = append(res.Malformed, escrowmatch.Malformed{
				ID: i1, Err: escrowmatch.ErrSymmetricDecrypt,
			})
		}
		delete(pending, i1)
	}
	return res
}

// unsealShare opens one entry's sealed box and parses the share.
// Every failure mode surfaces as ErrAsymmetricDecrypt.
func unsealShare(e *escrowmatch.EncryptedData, pkOC, skOC *[32]byte) (*openShare, error) {
	sealed, err := codec.Base64Decode(e.EOC)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", escrowmatch.ErrAsymmetricDecrypt, err)
	}
	plain, err := prims.SealedBoxOpen(sealed, pkOC, skOC)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", escrowmatch.ErrAsymmetricDecrypt, err)
	}
	var share escrowmatch.Share
	if err := json.Unmarshal(plain, &share); err != nil {
		return nil, fmt.Errorf("%w: %v", escrowmatch.ErrAsymmetricDecrypt, err)
	}
	x, ok := new(big.Int).SetString(share.X, 10)
	if !ok || x.Sign() < 0 {
		return nil, fmt.Errorf("%w: share x is not a field element", escrowmatch.ErrAsymmetricDecrypt)
	}
	y, ok := new(big.Int).SetString(share.Y, 10)
	if !ok || y.Sign() < 0 {
		return nil, fmt.Errorf("%w: share y is not a field element", escrowmatch.ErrAsymmetricDecrypt)
	}
	return &openShare{
		id:            e.ID,
		point:         field.Point{X: x, Y: y},
		eRecordKey:    share.ERecordKey,
		eRecord:       e.ERecord,
		matchingIndex: e.MatchingIndex,
	}, nil
}

// candidateKey reconstructs the intercept from two shares as the
// 32-byte little-endian key. A pair with equal x-coordinates has no
// slope and is rejected.
func candidateKey(s1, s2 *openShare) ([]byte, bool) {
	slope, err := field.DeriveSlope(s1.point, s2.point)
	if err != nil {
		return nil, false
	}
	k := field.Intercept(s1.point, slope)
	key := codec.IntToBytes(k)
	utils.ZeroizeBig(k)
	return key, true
}

// openRecordKey decrypts a share's record key under a candidate
// intercept, authenticated against the share's matching index.
func openRecordKey(s *openShare, key []byte) ([]byte, error) {
	ct, nonce, err := codec.SplitFrame(s.eRecordKey)
	if err != nil {
		return nil, escrowmatch.ErrSymmetricDecrypt
	}
	keyB64, err := prims.AEADOpen(key, ct, nonce, []byte(core.ADRecordKey+s.matchingIndex))
	if err != nil {
		return nil, err
	}
	recordKey, err := codec.Base64Decode(string(keyB64))
	if err != nil {
		return nil, escrowmatch.ErrSymmetricDecrypt
	}
	return recordKey, nil
}

// emitRecord decrypts a share's record body with its recovered record
// key. A failure here is reported but does not demote the share: its
// geometry is proven, so it can still vouch for later partners.
func emitRecord(res *Result, s *openShare, recordKey []byte) {
	defer utils.Zeroize(recordKey)

	ct, nonce, err := codec.SplitFrame(s.eRecord)
	if err != nil {
		res.Malformed = append(res.Malformed, escrowmatch.Malformed{
			ID: s.id, Err: escrowmatch.ErrSymmetricDecrypt,
		})
		return
	}
	plain, err := prims.AEADOpen(recordKey, ct, nonce, []byte(core.ADRecord+s.matchingIndex))
	if err != nil {
		res.Malformed = append(res.Malformed, escrowmatch.Malformed{
			ID: s.id, Err: err,
		})
		return
	}
	var record escrowmatch.Record
	if err := json.Unmarshal(plain, &record); err != nil {
		res.Malformed = append(res.Malformed, escrowmatch.Malformed{
			ID: s.id, Err: escrowmatch.ErrSymmetricDecrypt,
		})
		return
	}
	res.Records = append(res.Records, record)
}
