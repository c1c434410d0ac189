package counselor

import (
	escrowmatch "github.com/BackendStack21/escrowmatch-go"
)

// Bucket groups entries by matching index and drops every index that
// cannot possibly pair. An index with exactly one entry produces a
// MatchingIndexSingleton malformed record; an empty or single-entry
// input yields NotEnoughMatches (tagged with the sole entry's id, or
// "All" when there is none). The returned map contains only indices
// with at least two entries.
func Bucket(entries []*escrowmatch.EncryptedData) (map[string][]*escrowmatch.EncryptedData, []escrowmatch.Malformed) {
	var malformed []escrowmatch.Malformed

	if len(entries) < 2 {
		id := escrowmatch.IDAll
		if len(entries) == 1 {
			id = entries[0].ID
		}
		malformed = append(malformed, escrowmatch.Malformed{
			ID: id, Err: escrowmatch.ErrNotEnoughMatches,
		})
		return nil, malformed
	}

	buckets := make(map[string][]*escrowmatch.EncryptedData)
	for _, e := range entries {
		buckets[e.MatchingIndex] = append(buckets[e.MatchingIndex], e)
	}

	for idx, group := range buckets {
		if len(group) == 1 {
			malformed = append(malformed, escrowmatch.Malformed{
				ID: group[0].ID, Err: escrowmatch.ErrMatchingIndexSingleton,
			})
			delete(buckets, idx)
		}
	}
	return buckets, malformed
}
