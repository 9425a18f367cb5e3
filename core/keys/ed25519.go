package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

type ed25519Signer struct {
	priv  ed25519.PrivateKey
	keyID string
}

// NewEd25519Signer builds a Signer from a raw Ed25519 private key.
func NewEd25519Signer(priv ed25519.PrivateKey) (Signer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keys: invalid ed25519 private key length: %d", len(priv))
	}
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("keys: unexpected ed25519 public key type")
	}
	keyID, err := DeriveKeyID(TypeEd25519, SchemeEd25519, hex.EncodeToString(pub))
	if err != nil {
		return nil, err
	}
	return &ed25519Signer{priv: priv, keyID: keyID}, nil
}

func (s *ed25519Signer) KeyID() string  { return s.keyID }
func (s *ed25519Signer) Scheme() string { return SchemeEd25519 }

func (s *ed25519Signer) Sign(data []byte) (Signature, error) {
	sig := ed25519.Sign(s.priv, data)
	return Signature{KeyID: s.keyID, Sig: hex.EncodeToString(sig)}, nil
}

type ed25519Verifier struct {
	pub   ed25519.PublicKey
	keyID string
}

// NewEd25519Verifier builds a Verifier from a PublicKey descriptor whose
// keyval.public is hex-encoded raw Ed25519 key bytes.
func NewEd25519Verifier(pk PublicKey) (Verifier, error) {
	raw, err := hex.DecodeString(pk.KeyVal.Public)
	if err != nil {
		return nil, fmt.Errorf("keys: decode ed25519 public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("keys: invalid ed25519 public key length: %d", len(raw))
	}
	keyID := pk.KeyID
	if keyID == "" {
		keyID, err = DeriveKeyID(TypeEd25519, SchemeEd25519, pk.KeyVal.Public)
		if err != nil {
			return nil, err
		}
	}
	return &ed25519Verifier{pub: ed25519.PublicKey(raw), keyID: keyID}, nil
}

func (v *ed25519Verifier) KeyID() string  { return v.keyID }
func (v *ed25519Verifier) Scheme() string { return SchemeEd25519 }

func (v *ed25519Verifier) Verify(data []byte, sig Signature) error {
	raw, err := hex.DecodeString(sig.Sig)
	if err != nil {
		return fmt.Errorf("keys: decode signature: %w", err)
	}
	if len(raw) != ed25519.SignatureSize {
		return fmt.Errorf("keys: invalid ed25519 signature length: %d", len(raw))
	}
	if !ed25519.Verify(v.pub, data, raw) {
		return fmt.Errorf("keys: ed25519 signature verification failed")
	}
	return nil
}
