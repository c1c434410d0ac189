package escrowmatch

// Record is the plaintext a user submits: who they are naming and who
// they are. Both fields must be non-empty.
type Record struct {
	PerpID string `json:"perpId"`
	UserID string `json:"userId"`
}

// Share is the wire form of one secret-sharing point, carried inside
// the sealed box addressed to an OC. X and Y are decimal strings of
// field residues; ERecordKey is the record key encrypted under the
// reconstructed intercept k.
type Share struct {
	X          string `json:"x"`
	Y          string `json:"y"`
	ERecordKey string `json:"eRecordKey"`
}

// EncryptedData is the per-submission, per-OC unit persisted server
// side. Only ERecord is ever rewritten after creation (by the user
// edit path); every other field is immutable.
type EncryptedData struct {
	// ID identifies one submission. It is shared across all per-OC
	// copies fanned out from the same Encrypt call.
	ID string `json:"id"`

	// MatchingIndex is the opaque base64url bucketing key, equal for
	// all submissions naming the same perpetrator.
	MatchingIndex string `json:"matchingIndex"`

	// EOC is the sealed-box ciphertext of the JSON Share, addressed
	// to one OC public key.
	EOC string `json:"eOC"`

	// EUser is the record key encrypted under the user passphrase.
	EUser string `json:"eUser"`

	// ERecord is the JSON Record encrypted under the record key.
	ERecord string `json:"eRecord"`
}

// EncryptedMap groups EncryptedData by matching index and then by OC
// id. Neither level has an ordering requirement.
type EncryptedMap map[string]map[string][]*EncryptedData

// OCKeys maps an OC id to its 32-byte sealed-box public key.
type OCKeys map[string]*[32]byte

// Malformed reports one recoverable failure, tagged with the id of the
// offending submission (or IDAll / IDEncryption when the failure is
// not attributable to a single entry).
type Malformed struct {
	ID  string
	Err error
}

// Reserved Malformed ids.
const (
	// IDAll tags failures that invalidate an entire operation, such
	// as a missing OC key dictionary.
	IDAll = "All"

	// IDEncryption tags per-randId failures during encryption.
	IDEncryption = "encryption"
)
