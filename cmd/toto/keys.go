package main

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	toterrors "github.com/ossforge/toto/core/errors"
	"github.com/ossforge/toto/core/fsx"
	"github.com/ossforge/toto/core/keys"
)

func runKeys(arguments []string) int {
	if len(arguments) == 0 {
		printUsage()
		return exitInvalidInput
	}
	switch arguments[0] {
	case "init":
		return runKeysInit(arguments[1:])
	case "verify":
		return runKeysVerify(arguments[1:])
	default:
		printUsage()
		return exitInvalidInput
	}
}

type keysInitOutput struct {
	OK             bool   `json:"ok"`
	KeyID          string `json:"key_id,omitempty"`
	PublicKeyPath  string `json:"public_key_path,omitempty"`
	PrivateKeyPath string `json:"private_key_path,omitempty"`
	Error          string `json:"error,omitempty"`
}

func runKeysInit(arguments []string) int {
	flagSet := flag.NewFlagSet("keys-init", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	cfg := loadCLIConfig()
	defaultOutDir := cfg.Keys.OutDir
	if defaultOutDir == "" {
		defaultOutDir = filepath.Join("toto-out", "keys")
	}
	defaultKeyType := cfg.Keys.KeyType
	if defaultKeyType == "" {
		defaultKeyType = keys.TypeEd25519
	}

	var outDir, prefix, keyType string
	var jsonOutput bool

	flagSet.StringVar(&outDir, "out-dir", defaultOutDir, "directory for generated key files")
	flagSet.StringVar(&prefix, "prefix", "toto", "key file prefix")
	flagSet.StringVar(&keyType, "keytype", defaultKeyType, "key type: ed25519|rsa|ecdsa")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")

	if err := flagSet.Parse(arguments); err != nil {
		return writeKeysInitOutput(jsonOutput, keysInitOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}

	result, err := generateSigningKeypair(outDir, prefix, keyType)
	if err != nil {
		logrus.WithError(err).WithField("keytype", keyType).Warn("toto keys init: failed")
		return writeKeysInitOutput(jsonOutput, keysInitOutput{OK: false, Error: err.Error()}, exitCodeForError(err, exitInvalidInput))
	}
	logrus.WithFields(logrus.Fields{"key_id": result.KeyID, "public": result.PublicKeyPath}).Info("toto keys init: generated keypair")
	return writeKeysInitOutput(jsonOutput, result, exitOK)
}

// generateSigningKeypair creates a fresh keypair of keyType, writes the
// PKCS8-PEM private key to <out-dir>/<prefix>.key (mode 0600) and the
// PublicKey JSON descriptor to <out-dir>/<prefix>.pub (mode 0644).
func generateSigningKeypair(outDir, prefix, keyType string) (keysInitOutput, error) {
	var priv any
	var pk keys.PublicKey

	switch keyType {
	case keys.TypeEd25519:
		pub, privKey, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return keysInitOutput{}, toterrors.Wrap(err, toterrors.KindCrypto, "generate_key", "", toterrors.Context{})
		}
		priv = privKey
		pk = keys.PublicKey{KeyType: keys.TypeEd25519, Scheme: keys.SchemeEd25519, KeyVal: keys.KeyVal{Public: hex.EncodeToString(pub)}}
	case keys.TypeRSA:
		privKey, err := rsa.GenerateKey(rand.Reader, 3072)
		if err != nil {
			return keysInitOutput{}, toterrors.Wrap(err, toterrors.KindCrypto, "generate_key", "", toterrors.Context{})
		}
		priv = privKey
		pubPEM, err := encodeRSAPublicKeyPEMForCLI(&privKey.PublicKey)
		if err != nil {
			return keysInitOutput{}, toterrors.Wrap(err, toterrors.KindCrypto, "encode_public_key", "", toterrors.Context{})
		}
		pk = keys.PublicKey{KeyType: keys.TypeRSA, Scheme: keys.SchemeRSAPSSSHA256, KeyVal: keys.KeyVal{Public: pubPEM}}
	case keys.TypeECDSA:
		privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return keysInitOutput{}, toterrors.Wrap(err, toterrors.KindCrypto, "generate_key", "", toterrors.Context{})
		}
		priv = privKey
		pubPEM, err := encodeECDSAPublicKeyPEMForCLI(&privKey.PublicKey)
		if err != nil {
			return keysInitOutput{}, toterrors.Wrap(err, toterrors.KindCrypto, "encode_public_key", "", toterrors.Context{})
		}
		pk = keys.PublicKey{KeyType: keys.TypeECDSA, Scheme: keys.SchemeECDSANistP256, KeyVal: keys.KeyVal{Public: pubPEM}}
	default:
		return keysInitOutput{}, toterrors.New(toterrors.KindSchema, "unsupported_keytype", "use ed25519, rsa, or ecdsa", toterrors.Context{},
			fmt.Sprintf("keys: unsupported keytype %q", keyType))
	}

	keyID, err := keys.DeriveKeyID(pk.KeyType, pk.Scheme, pk.KeyVal.Public)
	if err != nil {
		return keysInitOutput{}, toterrors.Wrap(err, toterrors.KindCrypto, "derive_keyid", "", toterrors.Context{})
	}
	pk.KeyID = keyID

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return keysInitOutput{}, toterrors.Wrap(err, toterrors.KindCrypto, "marshal_private_key", "", toterrors.Context{})
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})

	pubJSON, err := json.MarshalIndent(pk, "", "  ")
	if err != nil {
		return keysInitOutput{}, toterrors.Wrap(err, toterrors.KindRuntime, "marshal_public_key", "", toterrors.Context{})
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return keysInitOutput{}, toterrors.Wrap(err, toterrors.KindIO, "create_out_dir", "check out-dir permissions", toterrors.Context{Path: outDir})
	}
	privPath := filepath.Join(outDir, prefix+".key")
	pubPath := filepath.Join(outDir, prefix+".pub")
	if err := fsx.WriteFileAtomic(privPath, privPEM, 0o600); err != nil {
		return keysInitOutput{}, toterrors.Wrap(err, toterrors.KindIO, "write_private_key", "check out-dir permissions", toterrors.Context{Path: privPath})
	}
	if err := fsx.WriteFileAtomic(pubPath, pubJSON, 0o644); err != nil {
		return keysInitOutput{}, toterrors.Wrap(err, toterrors.KindIO, "write_public_key", "check out-dir permissions", toterrors.Context{Path: pubPath})
	}

	return keysInitOutput{OK: true, KeyID: keyID, PublicKeyPath: pubPath, PrivateKeyPath: privPath}, nil
}

func encodeRSAPublicKeyPEMForCLI(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal rsa public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

func encodeECDSAPublicKeyPEMForCLI(pub *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal ecdsa public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

func writeKeysInitOutput(jsonOutput bool, output keysInitOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Printf("keys init ok: key_id=%s public=%s private=%s\n", output.KeyID, output.PublicKeyPath, output.PrivateKeyPath)
		return exitCode
	}
	fmt.Printf("keys init error: %s\n", output.Error)
	return exitCode
}

type keysVerifyOutput struct {
	OK    bool   `json:"ok"`
	KeyID string `json:"key_id,omitempty"`
	Error string `json:"error,omitempty"`
}

func runKeysVerify(arguments []string) int {
	flagSet := flag.NewFlagSet("keys-verify", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var pubkeyPath string
	var jsonOutput bool

	flagSet.StringVar(&pubkeyPath, "pubkey", "", "path to a PublicKey JSON descriptor")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")

	if err := flagSet.Parse(arguments); err != nil {
		return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if pubkeyPath == "" {
		return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: "--pubkey is required"}, exitInvalidInput)
	}

	// #nosec G304 -- path is an operator-supplied CLI flag.
	raw, err := os.ReadFile(pubkeyPath)
	if err != nil {
		return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	var pk keys.PublicKey
	if err := json.Unmarshal(raw, &pk); err != nil {
		return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}

	verifier, err := keys.NewVerifier(pk)
	if err != nil {
		return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}

	derivedID, err := keys.DeriveKeyID(pk.KeyType, pk.Scheme, pk.KeyVal.Public)
	if err == nil && pk.KeyID != "" && pk.KeyID != derivedID {
		return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: "descriptor keyid does not match its derived keyid"}, exitInvalidInput)
	}

	return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: true, KeyID: verifier.KeyID()}, exitOK)
}

func writeKeysVerifyOutput(jsonOutput bool, output keysVerifyOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Printf("keys verify ok: key_id=%s\n", output.KeyID)
		return exitCode
	}
	fmt.Printf("keys verify error: %s\n", output.Error)
	return exitCode
}
