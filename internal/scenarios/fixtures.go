// Package scenarios runs the six end-to-end pass/fail scenarios a
// verification pipeline must get right, each driven entirely through
// core/verify's public API against in-memory fixtures built here.
package scenarios

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ossforge/toto/core/keys"
	"github.com/ossforge/toto/core/model"
)

// generateSigner creates a fresh ed25519 keypair and returns both the
// Signer a functionary or owner uses and the PublicKey descriptor a
// layout's keys map stores.
func generateSigner(t *testing.T) (keys.Signer, keys.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := keys.NewEd25519Signer(priv)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	pk := keys.PublicKey{KeyID: signer.KeyID(), KeyType: keys.TypeEd25519, Scheme: keys.SchemeEd25519, KeyVal: keys.KeyVal{Public: hex.EncodeToString(pub)}}
	return signer, pk
}

// signEnvelope wraps payload in a classic envelope and signs it with
// every signer given.
func signEnvelope(t *testing.T, payload any, signers ...keys.Signer) *model.Envelope {
	t.Helper()
	envelope, err := model.NewClassicEnvelope(payload)
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}
	signBytes, err := envelope.SignBytes()
	if err != nil {
		t.Fatalf("sign bytes: %v", err)
	}
	for _, signer := range signers {
		sig, err := signer.Sign(signBytes)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		envelope.AddSignature(sig)
	}
	return envelope
}

// writeLink writes link as a file named "<step>.<first signer prefix>.link"
// under dir, signed by every signer given, and returns the written path.
func writeLink(t *testing.T, dir string, link *model.Link, signers ...keys.Signer) string {
	t.Helper()
	envelope := signEnvelope(t, link, signers...)
	encoded, err := envelope.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal link: %v", err)
	}
	prefix := "unsigned"
	if len(signers) > 0 {
		id := signers[0].KeyID()
		if len(id) > 8 {
			id = id[:8]
		}
		prefix = id
	}
	path := filepath.Join(dir, link.Name+"."+prefix+".link")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write link: %v", err)
	}
	return path
}

// layoutBytes signs layout and returns its on-disk classic-envelope bytes.
func layoutBytes(t *testing.T, layout *model.Layout, signers ...keys.Signer) []byte {
	t.Helper()
	envelope := signEnvelope(t, layout, signers...)
	encoded, err := envelope.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal layout: %v", err)
	}
	return encoded
}

// digest builds a single-algorithm DigestSet from a hex string.
func digest(hex string) model.DigestSet {
	return model.DigestSet{"sha256": hex}
}

// marshal is a test-local convenience wrapping encoding/json.Marshal
// with a t.Fatalf on error, used when a fixture needs raw JSON rather
// than a typed struct.
func marshal(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

// mkdirAll creates dir (and any missing parents) with the evidence
// directory's usual permissions.
func mkdirAll(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// writeEnvelopeAsLink writes an already-signed envelope (typically one
// whose payload is a sublayout rather than a link) as
// "<step>.<prefix>.link" under dir.
func writeEnvelopeAsLink(t *testing.T, dir, step, prefix string, envelope *model.Envelope) string {
	t.Helper()
	encoded, err := envelope.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	path := filepath.Join(dir, step+"."+prefix+".link")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write link: %v", err)
	}
	return path
}

// baseLayout returns a minimal layout owned by owner, expiring at expires,
// with no steps — each scenario adds its own.
func baseLayout(owner keys.PublicKey, expires time.Time) *model.Layout {
	return &model.Layout{
		Type:    model.PayloadTypeLayout,
		Expires: expires,
		Keys:    map[string]keys.PublicKey{owner.KeyID: owner},
	}
}
