// Package record implements the recording engine: it produces a signed
// Link for a named step in three modes (wrap-and-run, record-start,
// record-stop), plus an unsigned "mock" variant for local dry runs. It
// owns the ordering guarantee (material hash precedes command
// execution, product hash follows it) and the on-disk naming
// convention (<step>.<keyid-prefix>.link).
package record

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	toterrors "github.com/ossforge/toto/core/errors"
	"github.com/ossforge/toto/core/fsx"
	"github.com/ossforge/toto/core/keys"
	"github.com/ossforge/toto/core/model"
	"github.com/ossforge/toto/core/resolve"
)

// Options carries the configuration every recording mode shares: the
// step name, how declared materials/products resolve to digests, who
// signs the result, and where link files land.
type Options struct {
	StepName  string
	Resolve   resolve.Options
	Signers   []keys.Signer
	OutputDir string
}

// hashSet resolves every uri in uris and merges the resulting
// {path: digestSet} entries into one map, so a step's materials or
// products can be declared as multiple independent URIs (files,
// directories, ostree commits) and recorded as one evidence set.
func hashSet(uris []string, opts resolve.Options) (map[string]model.DigestSet, error) {
	merged := make(map[string]model.DigestSet)
	for _, uri := range uris {
		entries, err := resolve.Resolve(uri, opts)
		if err != nil {
			return nil, toterrors.Wrap(err, toterrors.KindIO, "resolve_artifact",
				"check that the declared material/product path exists", toterrors.Context{Path: uri})
		}
		for path, digestSet := range entries {
			merged[path] = digestSet
		}
	}
	return merged, nil
}

func keyidPrefix(keyID string) string {
	if len(keyID) < 8 {
		return keyID
	}
	return keyID[:8]
}

// linkFilename is the final-link naming convention: <step>.<prefix>.link,
// where prefix is the first signer's keyid prefix even when more than
// one signer is configured.
func linkFilename(stepName string, signers []keys.Signer) (string, error) {
	if len(signers) == 0 {
		return "", toterrors.New(toterrors.KindRuntime, "no_signers",
			"configure at least one signer", toterrors.Context{Step: stepName},
			"record: at least one signer is required")
	}
	return fmt.Sprintf("%s.%s.link", stepName, keyidPrefix(signers[0].KeyID())), nil
}

// startFilename is the in-progress naming convention for record-start:
// the final filename with a ".start" suffix inserted before ".link",
// so a crash between start and stop never leaves something that looks
// like a finished link.
func startFilename(stepName string, signers []keys.Signer) (string, error) {
	final, err := linkFilename(stepName, signers)
	if err != nil {
		return "", err
	}
	base := final[:len(final)-len(".link")]
	return base + ".start.link", nil
}

// mockFilename is the unsigned dry-run naming convention: no keyid
// prefix exists yet because nothing is signed.
func mockFilename(stepName string) string {
	return stepName + ".mock.link"
}

// buildEnvelope wraps link in a classic envelope and signs it with
// every configured signer, over the same canonical bytes each signer
// independently recomputes via Envelope.SignBytes.
func buildEnvelope(link *model.Link, signers []keys.Signer) (*model.Envelope, error) {
	envelope, err := model.NewClassicEnvelope(link)
	if err != nil {
		return nil, toterrors.Wrap(err, toterrors.KindRuntime, "build_envelope", "", toterrors.Context{Step: link.Name})
	}
	signBytes, err := envelope.SignBytes()
	if err != nil {
		return nil, toterrors.Wrap(err, toterrors.KindCrypto, "canonicalize_link", "", toterrors.Context{Step: link.Name})
	}
	for _, signer := range signers {
		sig, err := signer.Sign(signBytes)
		if err != nil {
			return nil, toterrors.Wrap(err, toterrors.KindCrypto, "sign_link",
				"check signer key material", toterrors.Context{Step: link.Name})
		}
		envelope.AddSignature(sig)
	}
	return envelope, nil
}

// writeEnvelope atomically writes envelope's on-disk JSON to
// <outputDir>/<filename>.
func writeEnvelope(envelope *model.Envelope, outputDir, filename string) (string, error) {
	out, err := envelope.MarshalJSON()
	if err != nil {
		return "", toterrors.Wrap(err, toterrors.KindRuntime, "marshal_envelope", "", toterrors.Context{})
	}
	path := filepath.Join(outputDir, filename)
	if err := fsx.WriteFileAtomic(path, out, 0o600); err != nil {
		return "", toterrors.Wrap(err, toterrors.KindIO, "write_link",
			"check output directory permissions", toterrors.Context{Path: path})
	}
	logrus.WithField("path", path).Debug("record: wrote link envelope")
	return path, nil
}

// signAndWrite is the shared finish-line for every mode that emits a
// signed final link: sign, marshal, write atomically.
func signAndWrite(link *model.Link, signers []keys.Signer, outputDir, filename string) (string, *model.Envelope, error) {
	envelope, err := buildEnvelope(link, signers)
	if err != nil {
		return "", nil, err
	}
	path, err := writeEnvelope(envelope, outputDir, filename)
	if err != nil {
		return "", nil, err
	}
	return path, envelope, nil
}
