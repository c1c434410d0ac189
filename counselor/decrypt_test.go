package counselor

import (
	"bytes"
	"errors"
	"testing"

	escrowmatch "github.com/BackendStack21/escrowmatch-go"
	"github.com/BackendStack21/escrowmatch-go/prims"
	"github.com/BackendStack21/escrowmatch-go/submission"
	"github.com/BackendStack21/escrowmatch-go/utils"
)

type testOC struct {
	id string
	pk *[32]byte
	sk *[32]byte
}

func newTestOC(t *testing.T, id string) *testOC {
	t.Helper()
	pk, sk, err := prims.GenerateBoxKeyPair()
	if err != nil {
		t.Fatalf("GenerateBoxKeyPair failed: %v", err)
	}
	return &testOC{id: id, pk: pk, sk: sk}
}

func testPassphrase() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

// submitAll encrypts one record per user under the shared randId and
// returns the merged view one OC would receive.
func submitAll(t *testing.T, randID []byte, oc *testOC, userIDs ...string) []*escrowmatch.EncryptedData {
	t.Helper()
	ocKeys := escrowmatch.OCKeys{oc.id: oc.pk}
	var merged []*escrowmatch.EncryptedData
	for _, uid := range userIDs {
		record := escrowmatch.Record{PerpID: "perp", UserID: uid}
		res := submission.Encrypt([][]byte{randID}, record, ocKeys, testPassphrase())
		if len(res.Malformed) != 0 {
			t.Fatalf("Encrypt for %s failed: %v", uid, res.Malformed)
		}
		for _, perOC := range res.EncryptedMap {
			merged = append(merged, perOC[oc.id]...)
		}
	}
	return merged
}

func recordSet(records []escrowmatch.Record) map[escrowmatch.Record]int {
	set := make(map[escrowmatch.Record]int)
	for _, r := range records {
		set[r]++
	}
	return set
}

func TestDecryptTwoMatchingSubmissions(t *testing.T) {
	oc := newTestOC(t, "oc1")
	randID, _ := utils.SecureRandomBytes(32)
	entries := submitAll(t, randID, oc, "u1", "u2")

	res := Decrypt(entries, oc.pk, oc.sk)
	if len(res.Malformed) != 0 {
		t.Fatalf("unexpected malformed: %v", res.Malformed)
	}
	got := recordSet(res.Records)
	want := recordSet([]escrowmatch.Record{
		{PerpID: "perp", UserID: "u1"},
		{PerpID: "perp", UserID: "u2"},
	})
	if len(got) != len(want) {
		t.Fatalf("record multiset = %v, want %v", got, want)
	}
	for r, n := range want {
		if got[r] != n {
			t.Errorf("record %+v count = %d, want %d", r, got[r], n)
		}
	}
}

func TestDecryptThreeMatchingSubmissions(t *testing.T) {
	oc := newTestOC(t, "oc1")
	randID, _ := utils.SecureRandomBytes(32)
	entries := submitAll(t, randID, oc, "u1", "u2", "u3")

	res := Decrypt(entries, oc.pk, oc.sk)
	if len(res.Malformed) != 0 {
		t.Fatalf("unexpected malformed: %v", res.Malformed)
	}
	if len(res.Records) != 3 {
		t.Fatalf("record count = %d, want 3", len(res.Records))
	}
}

func TestDecryptSingletonIndex(t *testing.T) {
	oc := newTestOC(t, "oc1")
	r1, _ := utils.SecureRandomBytes(32)
	r2, _ := utils.SecureRandomBytes(32)

	// Two matching submissions under r1, one unmatched under r2.
	entries := submitAll(t, r1, oc, "u1", "u2")
	entries = append(entries, submitAll(t, r2, oc, "u3")...)

	res := Decrypt(entries, oc.pk, oc.sk)
	if len(res.Records) != 2 {
		t.Errorf("record count = %d, want 2", len(res.Records))
	}
	if len(res.Malformed) != 1 {
		t.Fatalf("malformed count = %d, want 1", len(res.Malformed))
	}
	if !errors.Is(res.Malformed[0].Err, escrowmatch.ErrMatchingIndexSingleton) {
		t.Errorf("err = %v, want ErrMatchingIndexSingleton", res.Malformed[0].Err)
	}
}

func TestDecryptOnlySingletons(t *testing.T) {
	oc := newTestOC(t, "oc1")
	r1, _ := utils.SecureRandomBytes(32)
	r2, _ := utils.SecureRandomBytes(32)

	entries := submitAll(t, r1, oc, "u1")
	entries = append(entries, submitAll(t, r2, oc, "u2")...)

	res := Decrypt(entries, oc.pk, oc.sk)
	if len(res.Records) != 0 {
		t.Errorf("record count = %d, want 0", len(res.Records))
	}
	if len(res.Malformed) != 2 {
		t.Fatalf("malformed count = %d, want 2", len(res.Malformed))
	}
}

func TestDecryptEmptyInput(t *testing.T) {
	oc := newTestOC(t, "oc1")
	res := Decrypt(nil, oc.pk, oc.sk)
	if len(res.Records) != 0 {
		t.Error("records not empty")
	}
	if len(res.Malformed) != 1 || !errors.Is(res.Malformed[0].Err, escrowmatch.ErrNotEnoughMatches) {
		t.Errorf("malformed = %v, want one ErrNotEnoughMatches", res.Malformed)
	}
}

func TestDecryptCorruptedEntryIsolated(t *testing.T) {
	oc := newTestOC(t, "oc1")
	randID, _ := utils.SecureRandomBytes(32)
	entries := submitAll(t, randID, oc, "u1", "u2", "u3")

	// Replace one sealed box with garbage.
	entries[0].EOC = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	corruptedID := entries[0].ID

	res := Decrypt(entries, oc.pk, oc.sk)
	if len(res.Records) != 2 {
		t.Errorf("record count = %d, want 2", len(res.Records))
	}
	if len(res.Malformed) != 1 {
		t.Fatalf("malformed count = %d, want 1", len(res.Malformed))
	}
	m := res.Malformed[0]
	if m.ID != corruptedID || !errors.Is(m.Err, escrowmatch.ErrAsymmetricDecrypt) {
		t.Errorf("malformed = {%s, %v}, want {%s, ErrAsymmetricDecrypt}", m.ID, m.Err, corruptedID)
	}
}

func TestDecryptCorruptedRecordBody(t *testing.T) {
	oc := newTestOC(t, "oc1")
	randID, _ := utils.SecureRandomBytes(32)
	entries := submitAll(t, randID, oc, "u1", "u2", "u3")

	entries[1].ERecord = "AAAA$" + entries[1].ERecord[len(entries[1].ERecord)-32:]
	corruptedID := entries[1].ID

	res := Decrypt(entries, oc.pk, oc.sk)
	if len(res.Records) != 2 {
		t.Errorf("record count = %d, want 2", len(res.Records))
	}
	found := false
	for _, m := range res.Malformed {
		if m.ID == corruptedID {
			found = true
		}
	}
	if !found {
		t.Errorf("corrupted id %s not reported in %v", corruptedID, res.Malformed)
	}
}

func TestDecryptWrongOCKeys(t *testing.T) {
	ocA := newTestOC(t, "ocA")
	ocB := newTestOC(t, "ocB")
	randID, _ := utils.SecureRandomBytes(32)
	entries := submitAll(t, randID, ocA, "u1", "u2")

	res := Decrypt(entries, ocB.pk, ocB.sk)
	if len(res.Records) != 0 {
		t.Error("records decrypted under the wrong OC keypair")
	}
	if len(res.Malformed) != 2 {
		t.Fatalf("malformed count = %d, want 2", len(res.Malformed))
	}
	for _, m := range res.Malformed {
		if !errors.Is(m.Err, escrowmatch.ErrAsymmetricDecrypt) {
			t.Errorf("err = %v, want ErrAsymmetricDecrypt", m.Err)
		}
	}
}

func TestDecryptMixedIndices(t *testing.T) {
	oc := newTestOC(t, "oc1")
	r1, _ := utils.SecureRandomBytes(32)
	r2, _ := utils.SecureRandomBytes(32)

	entries := submitAll(t, r1, oc, "u1", "u2")
	entries = append(entries, submitAll(t, r2, oc, "u3", "u4")...)

	res := Decrypt(entries, oc.pk, oc.sk)
	if len(res.Malformed) != 0 {
		t.Fatalf("unexpected malformed: %v", res.Malformed)
	}
	if len(res.Records) != 4 {
		t.Errorf("record count = %d, want 4", len(res.Records))
	}
}

func TestDecryptDuplicateUserCannotPair(t *testing.T) {
	oc := newTestOC(t, "oc1")
	randID, _ := utils.SecureRandomBytes(32)

	// Two submissions by the same user share an x-coordinate; the
	// slope between them is undefined, so the pair is rejected.
	entries := submitAll(t, randID, oc, "u1", "u1")

	res := Decrypt(entries, oc.pk, oc.sk)
	if len(res.Records) != 0 {
		t.Errorf("record count = %d, want 0", len(res.Records))
	}
	if len(res.Malformed) != 2 {
		t.Fatalf("malformed count = %d, want 2", len(res.Malformed))
	}
	for _, m := range res.Malformed {
		if !errors.Is(m.Err, escrowmatch.ErrSymmetricDecrypt) {
			t.Errorf("err = %v, want ErrSymmetricDecrypt", m.Err)
		}
	}
}
