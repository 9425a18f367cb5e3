package keys

import "fmt"

// NewVerifier dispatches on pk.KeyType to build the right Verifier
// implementation from a layout's key descriptor.
func NewVerifier(pk PublicKey) (Verifier, error) {
	switch pk.KeyType {
	case TypeEd25519:
		return NewEd25519Verifier(pk)
	case TypeRSA:
		return NewRSAPSSVerifier(pk)
	case TypeECDSA:
		return NewECDSAVerifier(pk)
	case TypeGPG:
		return NewPGPVerifier(pk)
	default:
		return nil, fmt.Errorf("keys: unsupported keytype %q", pk.KeyType)
	}
}
