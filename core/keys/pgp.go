package keys

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// pgpFingerprintHex returns the 40-hex fingerprint in the in-toto keyid
// vocabulary: lowercase hex of the primary key's fingerprint bytes.
func pgpFingerprintHex(entity *openpgp.Entity) string {
	return hex.EncodeToString(entity.PrimaryKey.Fingerprint[:])
}

type pgpSigner struct {
	entity *openpgp.Entity
	scheme string
	keyID  string
}

// NewPGPSigner builds a Signer from an armored OpenPGP private key block.
// scheme must be SchemeGPGRSA or SchemeGPGEd25519 and is used only to
// record intent; the actual algorithm is whatever the key material is.
func NewPGPSigner(armoredPrivateKey string, scheme string) (Signer, error) {
	entityList, err := openpgp.ReadArmoredKeyRing(bytes.NewReader([]byte(armoredPrivateKey)))
	if err != nil {
		return nil, fmt.Errorf("keys: read armored pgp private key: %w", err)
	}
	if len(entityList) != 1 {
		return nil, fmt.Errorf("keys: expected exactly one pgp entity, got %d", len(entityList))
	}
	entity := entityList[0]
	if entity.PrivateKey == nil {
		return nil, fmt.Errorf("keys: pgp entity has no private key")
	}
	return &pgpSigner{entity: entity, scheme: scheme, keyID: pgpFingerprintHex(entity)}, nil
}

func (s *pgpSigner) KeyID() string  { return s.keyID }
func (s *pgpSigner) Scheme() string { return s.scheme }

func (s *pgpSigner) Sign(data []byte) (Signature, error) {
	var buf bytes.Buffer
	if err := openpgp.DetachSign(&buf, s.entity, bytes.NewReader(data), &packet.Config{}); err != nil {
		return Signature{}, fmt.Errorf("keys: pgp detach sign: %w", err)
	}
	return Signature{KeyID: s.keyID, Sig: hex.EncodeToString(buf.Bytes())}, nil
}

type pgpVerifier struct {
	keyring openpgp.EntityList
	root    PublicKey
	scheme  string
	keyID   string
}

// NewPGPVerifier builds a Verifier from a PublicKey descriptor whose
// keyval.public is an armored OpenPGP public key block (which may itself
// carry sub-keys; ResolvePrimaryKeyID handles threshold-safe sub-key
// attribution on top of this).
func NewPGPVerifier(pk PublicKey) (Verifier, error) {
	entityList, err := openpgp.ReadArmoredKeyRing(bytes.NewReader([]byte(pk.KeyVal.Public)))
	if err != nil {
		return nil, fmt.Errorf("keys: read armored pgp public key: %w", err)
	}
	if len(entityList) != 1 {
		return nil, fmt.Errorf("keys: expected exactly one pgp entity, got %d", len(entityList))
	}
	keyID := pk.KeyID
	if keyID == "" {
		keyID = pgpFingerprintHex(entityList[0])
	}
	scheme := pk.Scheme
	if scheme == "" {
		scheme = SchemeGPGRSA
	}
	return &pgpVerifier{keyring: entityList, root: pk, scheme: scheme, keyID: keyID}, nil
}

func (v *pgpVerifier) KeyID() string  { return v.keyID }
func (v *pgpVerifier) Scheme() string { return v.scheme }

func (v *pgpVerifier) Verify(data []byte, sig Signature) error {
	raw, err := hex.DecodeString(sig.Sig)
	if err != nil {
		return fmt.Errorf("keys: decode pgp signature: %w", err)
	}
	signer, err := openpgp.CheckDetachedSignature(v.keyring, bytes.NewReader(data), bytes.NewReader(raw), nil)
	if err != nil {
		return fmt.Errorf("keys: pgp signature verification failed: %w", err)
	}
	signerKeyID := pgpFingerprintHex(signer)
	if _, ok := ResolvePrimaryKeyID(v.root, signerKeyID); !ok {
		return fmt.Errorf("keys: pgp signature made by unassociated sub-key %s", signerKeyID)
	}
	return nil
}
