package keys

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"
)

// KeyConfig describes where to load a local signing key from: a path on
// disk or an environment variable, for one of the supported key types. At
// most one of Path/Env is set per source.
type KeyConfig struct {
	KeyType string // TypeEd25519, TypeRSA, TypeECDSA, or TypeGPG
	Path    string
	Env     string
}

// LoadSigner reads the key material cfg points at and returns a Signer of
// the appropriate scheme. Ed25519/RSA/ECDSA private keys are PEM blocks:
// ed25519 accepts only PKCS8, RSA accepts PKCS1 or PKCS8, and ECDSA
// accepts SEC1 or PKCS8. GPG keys are armored private key blocks.
func LoadSigner(cfg KeyConfig) (Signer, error) {
	raw, err := readKeySource(cfg)
	if err != nil {
		return nil, err
	}
	switch cfg.KeyType {
	case TypeEd25519:
		priv, err := decodeEd25519PrivatePEM(raw)
		if err != nil {
			return nil, err
		}
		return NewEd25519Signer(priv)
	case TypeRSA:
		priv, err := decodeRSAPrivatePEM(raw)
		if err != nil {
			return nil, err
		}
		return NewRSAPSSSigner(priv)
	case TypeECDSA:
		priv, err := decodeECDSAPrivatePEM(raw)
		if err != nil {
			return nil, err
		}
		return NewECDSASigner(priv)
	case TypeGPG:
		return NewPGPSigner(raw, SchemeGPGRSA)
	default:
		return nil, fmt.Errorf("keys: unsupported keytype %q", cfg.KeyType)
	}
}

func readKeySource(cfg KeyConfig) (string, error) {
	if cfg.Path != "" && cfg.Env != "" {
		return "", fmt.Errorf("keys: key source: set either path or env, not both")
	}
	if cfg.Path != "" {
		// #nosec G304 -- caller supplies local key path by design.
		b, err := os.ReadFile(cfg.Path)
		if err != nil {
			return "", fmt.Errorf("keys: read key file: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	if cfg.Env != "" {
		val, ok := os.LookupEnv(cfg.Env)
		if !ok || strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("keys: key env not set: %s", cfg.Env)
		}
		return strings.TrimSpace(val), nil
	}
	return "", fmt.Errorf("keys: key source not configured")
}

func decodeEd25519PrivatePEM(data string) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, fmt.Errorf("keys: invalid PEM ed25519 private key")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("keys: parse ed25519 private key: %w", err)
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("keys: PEM block is not an ed25519 private key")
	}
	return priv, nil
}

func decodeRSAPrivatePEM(data string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, fmt.Errorf("keys: invalid PEM rsa private key")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("keys: parse rsa private key: %w", err)
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("keys: PEM block is not an rsa private key")
	}
	return priv, nil
}

func decodeECDSAPrivatePEM(data string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, fmt.Errorf("keys: invalid PEM ecdsa private key")
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("keys: parse ecdsa private key: %w", err)
	}
	priv, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("keys: PEM block is not an ecdsa private key")
	}
	return priv, nil
}
