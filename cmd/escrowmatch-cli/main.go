// Package main provides the escrowmatch-cli command line interface
// for matching-escrow operations: OC key generation, derivation,
// submission encryption, counselor decryption, and the user edit
// path. All file formats are JSON; all binary values are URL-safe
// unpadded base64.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	escrowmatch "github.com/BackendStack21/escrowmatch-go"
	"github.com/BackendStack21/escrowmatch-go/codec"
	"github.com/BackendStack21/escrowmatch-go/core"
	"github.com/BackendStack21/escrowmatch-go/counselor"
	"github.com/BackendStack21/escrowmatch-go/derive"
	"github.com/BackendStack21/escrowmatch-go/prims"
	"github.com/BackendStack21/escrowmatch-go/submission"
	"github.com/BackendStack21/escrowmatch-go/useredit"
)

const (
	version = "1.0.0"
	appName = "escrowmatch-cli"
)

// OCKeyPairExport is an exported OC identity.
type OCKeyPairExport struct {
	OCID      string `json:"ocId"`
	PublicKey string `json:"publicKey"`
	SecretKey string `json:"secretKey"`
	CreatedAt string `json:"createdAt"`
}

// MalformedExport is the JSON rendering of one Malformed entry.
type MalformedExport struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// EncryptExport is the output of the encrypt command.
type EncryptExport struct {
	EncryptedMap escrowmatch.EncryptedMap `json:"encryptedMap"`
	Malformed    []MalformedExport        `json:"malformed"`
}

// DecryptExport is the output of the decrypt and edit show commands.
type DecryptExport struct {
	Records   []escrowmatch.Record `json:"records"`
	Malformed []MalformedExport    `json:"malformed"`
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := core.ValidateParams(); err != nil {
		fmt.Fprintf(os.Stderr, "Parameter self-check failed: %v\n", err)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Printf("%s version %s\n", appName, version)
		fmt.Printf("escrowmatch library version %s\n", escrowmatch.Version)
	case "keygen":
		handleKeygen(os.Args[2:])
	case "derive":
		handleDerive(os.Args[2:])
	case "encrypt":
		handleEncrypt(os.Args[2:])
	case "decrypt":
		handleDecrypt(os.Args[2:])
	case "edit":
		handleEdit(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - Matching Escrow CLI

USAGE:
    %s <COMMAND> [OPTIONS]

COMMANDS:
    keygen      Generate an Options Counselor keypair
    derive      Derive the matching index for a randId
    encrypt     Encrypt one submission for a set of OCs
    decrypt     Decrypt an OC's bucket of submissions
    edit        Read or rewrite your own record (edit path)
    version     Show version information
    help        Show this help message

EXAMPLES:
    # Generate an OC identity
    %s keygen --id oc1 --output oc1.json

    # Show the matching index for a randId
    %s derive --rand-id <base64url 32 bytes>

    # Encrypt a submission
    %s encrypt --rand-id <b64> --perp-id p --user-id u1 \
        --oc-keys ocs.json --passphrase <b64 32 bytes> --output out.json

    # Decrypt a bucket as an OC
    %s decrypt --keypair oc1.json --input entries.json

    # Read your own record back
    %s edit show --passphrase <b64> --input entries.json

    # Rewrite your record in place
    %s edit update --passphrase <b64> --input entries.json \
        --perp-id p --user-id u1
`, appName, appName, appName, appName, appName, appName, appName, appName)
}

// getArg returns the value following any of the given flag names, or
// "" when absent.
func getArg(args []string, names ...string) string {
	for i, a := range args {
		for _, name := range names {
			if a == name && i+1 < len(args) {
				return args[i+1]
			}
		}
	}
	return ""
}

func requireArg(args []string, names ...string) string {
	v := getArg(args, names...)
	if v == "" {
		fmt.Fprintf(os.Stderr, "Error: %s is required\n", names[0])
		os.Exit(1)
	}
	return v
}

func writeOutput(data []byte, outputFile string) {
	if outputFile == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(outputFile, data, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outputFile, err)
		os.Exit(1)
	}
}

func decodeB64Arg(name, value string, wantLen int) []byte {
	b, err := codec.Base64Decode(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s is not valid base64url\n", name)
		os.Exit(1)
	}
	if wantLen > 0 && len(b) != wantLen {
		fmt.Fprintf(os.Stderr, "Error: %s must decode to %d bytes, got %d\n", name, wantLen, len(b))
		os.Exit(1)
	}
	return b
}

func exportMalformed(malformed []escrowmatch.Malformed) []MalformedExport {
	out := make([]MalformedExport, 0, len(malformed))
	for _, m := range malformed {
		out = append(out, MalformedExport{ID: m.ID, Error: m.Err.Error()})
	}
	return out
}

func loadEntries(path string) []*escrowmatch.EncryptedData {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}
	var entries []*escrowmatch.EncryptedData
	if err := json.Unmarshal(data, &entries); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", path, err)
		os.Exit(1)
	}
	return entries
}

func loadOCKeyPair(path string) (string, *[32]byte, *[32]byte) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}
	var export OCKeyPairExport
	if err := json.Unmarshal(data, &export); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", path, err)
		os.Exit(1)
	}
	pkBytes := decodeB64Arg("publicKey", export.PublicKey, core.BoxPublicKeySize)
	skBytes := decodeB64Arg("secretKey", export.SecretKey, core.BoxSecretKeySize)
	var pk, sk [32]byte
	copy(pk[:], pkBytes)
	copy(sk[:], skBytes)
	return export.OCID, &pk, &sk
}

func handleKeygen(args []string) {
	ocID := requireArg(args, "--id")
	outputFile := getArg(args, "--output", "-o")

	pk, sk, err := prims.GenerateBoxKeyPair()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating keypair: %v\n", err)
		os.Exit(1)
	}

	export := OCKeyPairExport{
		OCID:      ocID,
		PublicKey: codec.Base64Encode(pk[:]),
		SecretKey: codec.Base64Encode(sk[:]),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	output, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}
	writeOutput(output, outputFile)
}

func handleDerive(args []string) {
	randID := decodeB64Arg("--rand-id", requireArg(args, "--rand-id"), core.RandIDSize)

	d, err := derive.FromRandID(randID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error deriving: %v\n", err)
		os.Exit(1)
	}
	// Only the matching index is printable; slope and key never leave
	// the process.
	output, _ := json.MarshalIndent(map[string]string{
		"matchingIndex": d.MatchingIndex,
	}, "", "  ")
	writeOutput(output, getArg(args, "--output", "-o"))
}

func handleEncrypt(args []string) {
	randID := decodeB64Arg("--rand-id", requireArg(args, "--rand-id"), core.RandIDSize)
	record := escrowmatch.Record{
		PerpID: requireArg(args, "--perp-id"),
		UserID: requireArg(args, "--user-id"),
	}
	passphrase := decodeB64Arg("--passphrase", requireArg(args, "--passphrase"), core.KeySize)
	ocKeysFile := requireArg(args, "--oc-keys")

	data, err := os.ReadFile(ocKeysFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", ocKeysFile, err)
		os.Exit(1)
	}
	var rawKeys map[string]string
	if err := json.Unmarshal(data, &rawKeys); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", ocKeysFile, err)
		os.Exit(1)
	}
	ocKeys := make(escrowmatch.OCKeys, len(rawKeys))
	for id, pkB64 := range rawKeys {
		pkBytes := decodeB64Arg("oc key "+id, pkB64, core.BoxPublicKeySize)
		var pk [32]byte
		copy(pk[:], pkBytes)
		ocKeys[id] = &pk
	}

	res := submission.Encrypt([][]byte{randID}, record, ocKeys, passphrase)
	output, err := json.MarshalIndent(EncryptExport{
		EncryptedMap: res.EncryptedMap,
		Malformed:    exportMalformed(res.Malformed),
	}, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}
	writeOutput(output, getArg(args, "--output", "-o"))
}

func handleDecrypt(args []string) {
	_, pk, sk := loadOCKeyPair(requireArg(args, "--keypair"))
	entries := loadEntries(requireArg(args, "--input", "-i"))

	res := counselor.Decrypt(entries, pk, sk)
	output, err := json.MarshalIndent(DecryptExport{
		Records:   res.Records,
		Malformed: exportMalformed(res.Malformed),
	}, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}
	writeOutput(output, getArg(args, "--output", "-o"))
}

func handleEdit(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: edit requires a subcommand: show or update")
		os.Exit(1)
	}
	switch args[0] {
	case "show":
		editShow(args[1:])
	case "update":
		editUpdate(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown edit subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

func editShow(args []string) {
	passphrase := decodeB64Arg("--passphrase", requireArg(args, "--passphrase"), core.KeySize)
	entries := loadEntries(requireArg(args, "--input", "-i"))

	res := useredit.DecryptUserRecord(passphrase, entries)
	output, err := json.MarshalIndent(DecryptExport{
		Records:   res.Records,
		Malformed: exportMalformed(res.Malformed),
	}, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}
	writeOutput(output, getArg(args, "--output", "-o"))
}

func editUpdate(args []string) {
	passphrase := decodeB64Arg("--passphrase", requireArg(args, "--passphrase"), core.KeySize)
	inputFile := requireArg(args, "--input", "-i")
	entries := loadEntries(inputFile)
	newRecord := escrowmatch.Record{
		PerpID: requireArg(args, "--perp-id"),
		UserID: requireArg(args, "--user-id"),
	}

	malformed := useredit.UpdateUserRecord(passphrase, entries, newRecord)
	for _, m := range malformed {
		fmt.Fprintf(os.Stderr, "entry %s: %v\n", m.ID, m.Err)
	}
	if len(malformed) > 0 && (malformed[0].ID == escrowmatch.IDAll || len(malformed) == len(entries)) {
		fmt.Fprintln(os.Stderr, "Error: no entry could be updated")
		os.Exit(1)
	}

	output, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling entries: %v\n", err)
		os.Exit(1)
	}
	outputFile := getArg(args, "--output", "-o")
	if outputFile == "" {
		outputFile = inputFile
	}
	writeOutput(output, outputFile)
}
