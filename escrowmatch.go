// Package escrowmatch implements the cryptographic core of a matching
// escrow service. Each user independently encrypts a record naming a
// perpetrator and themselves; the record becomes decryptable by a
// designated reviewer (an Options Counselor, OC) only once a second
// record naming the same perpetrator exists. Until then neither the
// reviewer nor the service operator can read it.
package escrowmatch

// Shared types and error kinds are defined at the package root.
// Operations live in sub-packages, one per protocol role.

// Version of the escrowmatch Go implementation.
const Version = "1.0.0"

// API summary:
//
// Submission (user side):
//   - submission.Encrypt(randIDs, record, ocKeys, userPassphrase) - Build one
//     user's encrypted submission set, fanned out to every OC
//
// Review (counselor side):
//   - counselor.Decrypt(entries, pkOC, skOC) - Open a bucket of submissions,
//     pair matching shares and recover the records
//
// Edit (user side, no counselor involvement):
//   - useredit.DecryptUserRecord(passphrase, entries) - Read back own record
//   - useredit.UpdateUserRecord(passphrase, entries, newRecord) - Rotate the
//     record ciphertext in place
//
// Derivation:
//   - derive.FromRandID(randID) - (slope, key, matching index) for one
//     perpetrator pseudonym
//
// Keys:
//   - prims.GenerateBoxKeyPair() - Mint an OC keypair
