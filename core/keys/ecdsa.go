package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/asn1"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"
)

type ecdsaSigner struct {
	priv   *ecdsa.PrivateKey
	scheme string
	keyID  string
}

// NewECDSASigner builds a Signer over P-256 or P-384, selecting the
// digest and scheme name from the key's curve.
func NewECDSASigner(priv *ecdsa.PrivateKey) (Signer, error) {
	if priv == nil {
		return nil, fmt.Errorf("keys: nil ecdsa private key")
	}
	scheme, err := ecdsaScheme(priv.Curve)
	if err != nil {
		return nil, err
	}
	pubPEM, err := encodeECDSAPublicKeyPEM(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	keyID, err := DeriveKeyID(TypeECDSA, scheme, pubPEM)
	if err != nil {
		return nil, err
	}
	return &ecdsaSigner{priv: priv, scheme: scheme, keyID: keyID}, nil
}

func (s *ecdsaSigner) KeyID() string  { return s.keyID }
func (s *ecdsaSigner) Scheme() string { return s.scheme }

func (s *ecdsaSigner) Sign(data []byte) (Signature, error) {
	digest := ecdsaDigest(s.scheme, data)
	r, sVal, err := ecdsa.Sign(rand.Reader, s.priv, digest)
	if err != nil {
		return Signature{}, fmt.Errorf("keys: ecdsa sign: %w", err)
	}
	der, err := asn1.Marshal(struct{ R, S *big.Int }{r, sVal})
	if err != nil {
		return Signature{}, fmt.Errorf("keys: encode ecdsa signature: %w", err)
	}
	return Signature{KeyID: s.keyID, Sig: hex.EncodeToString(der)}, nil
}

type ecdsaVerifier struct {
	pub    *ecdsa.PublicKey
	scheme string
	keyID  string
}

// NewECDSAVerifier builds a Verifier from a PublicKey descriptor whose
// keyval.public is a PEM-encoded ECDSA public key.
func NewECDSAVerifier(pk PublicKey) (Verifier, error) {
	pub, err := decodeECDSAPublicKeyPEM(pk.KeyVal.Public)
	if err != nil {
		return nil, err
	}
	scheme := pk.Scheme
	if scheme == "" {
		scheme, err = ecdsaScheme(pub.Curve)
		if err != nil {
			return nil, err
		}
	}
	keyID := pk.KeyID
	if keyID == "" {
		keyID, err = DeriveKeyID(TypeECDSA, scheme, pk.KeyVal.Public)
		if err != nil {
			return nil, err
		}
	}
	return &ecdsaVerifier{pub: pub, scheme: scheme, keyID: keyID}, nil
}

func (v *ecdsaVerifier) KeyID() string  { return v.keyID }
func (v *ecdsaVerifier) Scheme() string { return v.scheme }

func (v *ecdsaVerifier) Verify(data []byte, sig Signature) error {
	raw, err := hex.DecodeString(sig.Sig)
	if err != nil {
		return fmt.Errorf("keys: decode signature: %w", err)
	}
	var parsed struct{ R, S *big.Int }
	if _, err := asn1.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("keys: decode ecdsa signature: %w", err)
	}
	digest := ecdsaDigest(v.scheme, data)
	if !ecdsa.Verify(v.pub, digest, parsed.R, parsed.S) {
		return fmt.Errorf("keys: ecdsa signature verification failed")
	}
	return nil
}

func ecdsaScheme(curve elliptic.Curve) (string, error) {
	switch curve {
	case elliptic.P256():
		return SchemeECDSANistP256, nil
	case elliptic.P384():
		return SchemeECDSANistP384, nil
	default:
		return "", fmt.Errorf("keys: unsupported ecdsa curve %s", curve.Params().Name)
	}
}

func ecdsaDigest(scheme string, data []byte) []byte {
	if scheme == SchemeECDSANistP384 {
		sum := sha512.Sum384(data)
		return sum[:]
	}
	sum := sha256.Sum256(data)
	return sum[:]
}

func encodeECDSAPublicKeyPEM(pub *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("keys: marshal ecdsa public key: %w", err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

func decodeECDSAPublicKeyPEM(encoded string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(encoded))
	if block == nil {
		return nil, fmt.Errorf("keys: invalid PEM ecdsa public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("keys: parse ecdsa public key: %w", err)
	}
	ecdsaPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("keys: PEM block is not an ecdsa public key")
	}
	return ecdsaPub, nil
}
