package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ossforge/toto/core/keys"
)

// parseSignerSpecs turns repeated --signer keytype:path flags into
// loaded Signers. Each spec is "<keytype>:<path>", e.g.
// "ed25519:/etc/toto/functionary.pem".
func parseSignerSpecs(specs []string) ([]keys.Signer, error) {
	var signers []keys.Signer
	for _, spec := range specs {
		keyType, path, ok := splitOnce(spec, ':')
		if !ok {
			return nil, fmt.Errorf("--signer value %q must be keytype:path", spec)
		}
		signer, err := keys.LoadSigner(keys.KeyConfig{KeyType: keyType, Path: path})
		if err != nil {
			return nil, err
		}
		signers = append(signers, signer)
	}
	return signers, nil
}

// splitOnce splits s on the first occurrence of sep into (before, after).
func splitOnce(s string, sep byte) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

// loadOwnerKeys reads one PublicKey JSON descriptor per path and indexes
// the result by keyid, deriving the keyid when the file omits it.
func loadOwnerKeys(paths []string) (map[string]keys.PublicKey, error) {
	owners := make(map[string]keys.PublicKey, len(paths))
	for _, path := range paths {
		// #nosec G304 -- path is an operator-supplied CLI flag.
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read owner key %s: %w", path, err)
		}
		var pk keys.PublicKey
		if err := json.Unmarshal(raw, &pk); err != nil {
			return nil, fmt.Errorf("decode owner key %s: %w", path, err)
		}
		if pk.KeyID == "" {
			keyID, err := keys.DeriveKeyID(pk.KeyType, pk.Scheme, pk.KeyVal.Public)
			if err != nil {
				return nil, fmt.Errorf("derive keyid for owner key %s: %w", path, err)
			}
			pk.KeyID = keyID
		}
		owners[pk.KeyID] = pk
	}
	return owners, nil
}
