// Package keys implements the signer/verifier adapter: an abstraction over
// pluggable cryptographic schemes (Ed25519, RSA-PSS/SHA-256, ECDSA P-256/
// P-384, and OpenPGP RSA/Ed25519) that owns keyid derivation and threshold-
// safe sub-key resolution. Callers obtain a Signer to produce link/layout
// signatures and a Verifier (built from a PublicKey descriptor loaded out
// of a layout) to check them.
package keys

import (
	"encoding/hex"
	"fmt"

	"crypto/sha256"

	"github.com/ossforge/toto/core/canonical"
)

// Scheme names, matching the wire vocabulary a layout's key descriptors use.
const (
	SchemeEd25519       = "ed25519"
	SchemeRSAPSSSHA256  = "rsassa-pss-sha256"
	SchemeECDSANistP256 = "ecdsa-sha2-nistp256"
	SchemeECDSANistP384 = "ecdsa-sha2-nistp384"
	SchemeGPGRSA        = "gpg-rsa"
	SchemeGPGEd25519    = "gpg-ed25519"
)

// KeyType names, the "family" a Scheme belongs to.
const (
	TypeEd25519 = "ed25519"
	TypeRSA     = "rsa"
	TypeECDSA   = "ecdsa"
	TypeGPG     = "gpg"
)

// KeyVal carries the encoded key material of a PublicKey descriptor. For
// ed25519/rsa/ecdsa keys Public is hex-encoded raw or PEM key bytes; for
// gpg keys it is an ASCII-armored public key block. Private is only ever
// populated on a caller's local, unsigned working copy — it is never part
// of anything hashed for a keyid or included in a layout.
type KeyVal struct {
	Public  string `json:"public"`
	Private string `json:"private,omitempty"`
}

// PublicKey is the descriptor form stored in a Layout's keys map.
type PublicKey struct {
	KeyID   string                `json:"keyid,omitempty"`
	KeyType string                `json:"keytype"`
	Scheme  string                `json:"scheme"`
	KeyVal  KeyVal                `json:"keyval"`
	SubKeys map[string]PublicKey  `json:"subkeys,omitempty"`
}

// Signature is the wire form of a signature entry: {keyid, sig, [cert]}.
type Signature struct {
	KeyID string `json:"keyid"`
	Sig   string `json:"sig"`
	Cert  string `json:"cert,omitempty"`
}

// Signer produces a Signature over arbitrary bytes (the canonical encoding
// of a payload, per core/canonical).
type Signer interface {
	KeyID() string
	Scheme() string
	Sign(data []byte) (Signature, error)
}

// Verifier checks a Signature against arbitrary bytes.
type Verifier interface {
	KeyID() string
	Scheme() string
	Verify(data []byte, sig Signature) error
}

// DeriveKeyID computes the keyid of a non-GPG public key: the hex SHA-256
// of the canonical encoding of its public-facing descriptor (keytype,
// scheme, and the public half of keyval only — never subkeys or private
// material, which would make the keyid depend on data the layout signer
// might not control).
func DeriveKeyID(keyType, scheme, publicKeyVal string) (string, error) {
	if keyType == TypeGPG {
		return "", fmt.Errorf("keys: gpg keyids are the 40-hex primary key fingerprint, not derived")
	}
	descriptor := map[string]any{
		"keytype": keyType,
		"scheme":  scheme,
		"keyval":  map[string]any{"public": publicKeyVal},
	}
	encoded, err := canonical.Encode(descriptor)
	if err != nil {
		return "", fmt.Errorf("keys: encode key descriptor: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// ResolvePrimaryKeyID walks root's sub-key set and returns the primary
// keyid that owns candidateKeyID: candidateKeyID itself if root's own id,
// root.KeyID if candidateKeyID names one of root's sub-keys, or "" if
// candidateKeyID is not associated with root at all. This implements the
// rule that a signature made by any of a primary's sub-keys satisfies a
// pubkeys entry naming the primary, without letting a sub-key count twice
// toward a threshold — callers dedupe on the returned primary id.
func ResolvePrimaryKeyID(root PublicKey, candidateKeyID string) (string, bool) {
	if root.KeyID == candidateKeyID {
		return root.KeyID, true
	}
	if _, ok := root.SubKeys[candidateKeyID]; ok {
		return root.KeyID, true
	}
	return "", false
}
