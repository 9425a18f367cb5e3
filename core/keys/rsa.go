package keys

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
)

type rsaPSSSigner struct {
	priv  *rsa.PrivateKey
	keyID string
}

// NewRSAPSSSigner builds a Signer using RSA-PSS with SHA-256.
func NewRSAPSSSigner(priv *rsa.PrivateKey) (Signer, error) {
	if priv == nil {
		return nil, fmt.Errorf("keys: nil rsa private key")
	}
	pubPEM, err := encodeRSAPublicKeyPEM(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	keyID, err := DeriveKeyID(TypeRSA, SchemeRSAPSSSHA256, pubPEM)
	if err != nil {
		return nil, err
	}
	return &rsaPSSSigner{priv: priv, keyID: keyID}, nil
}

func (s *rsaPSSSigner) KeyID() string  { return s.keyID }
func (s *rsaPSSSigner) Scheme() string { return SchemeRSAPSSSHA256 }

func (s *rsaPSSSigner) Sign(data []byte) (Signature, error) {
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPSS(rand.Reader, s.priv, crypto.SHA256, digest[:], nil)
	if err != nil {
		return Signature{}, fmt.Errorf("keys: rsa-pss sign: %w", err)
	}
	return Signature{KeyID: s.keyID, Sig: hex.EncodeToString(sig)}, nil
}

type rsaPSSVerifier struct {
	pub   *rsa.PublicKey
	keyID string
}

// NewRSAPSSVerifier builds a Verifier from a PublicKey descriptor whose
// keyval.public is a PEM-encoded RSA public key.
func NewRSAPSSVerifier(pk PublicKey) (Verifier, error) {
	pub, err := decodeRSAPublicKeyPEM(pk.KeyVal.Public)
	if err != nil {
		return nil, err
	}
	keyID := pk.KeyID
	if keyID == "" {
		keyID, err = DeriveKeyID(TypeRSA, SchemeRSAPSSSHA256, pk.KeyVal.Public)
		if err != nil {
			return nil, err
		}
	}
	return &rsaPSSVerifier{pub: pub, keyID: keyID}, nil
}

func (v *rsaPSSVerifier) KeyID() string  { return v.keyID }
func (v *rsaPSSVerifier) Scheme() string { return SchemeRSAPSSSHA256 }

func (v *rsaPSSVerifier) Verify(data []byte, sig Signature) error {
	raw, err := hex.DecodeString(sig.Sig)
	if err != nil {
		return fmt.Errorf("keys: decode signature: %w", err)
	}
	digest := sha256.Sum256(data)
	if err := rsa.VerifyPSS(v.pub, crypto.SHA256, digest[:], raw, nil); err != nil {
		return fmt.Errorf("keys: rsa-pss signature verification failed: %w", err)
	}
	return nil
}

func encodeRSAPublicKeyPEM(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("keys: marshal rsa public key: %w", err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

func decodeRSAPublicKeyPEM(encoded string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(encoded))
	if block == nil {
		return nil, fmt.Errorf("keys: invalid PEM rsa public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("keys: parse rsa public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("keys: PEM block is not an rsa public key")
	}
	return rsaPub, nil
}
