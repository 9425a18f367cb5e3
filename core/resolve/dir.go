package resolve

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ossforge/toto/core/jcs"
	"github.com/ossforge/toto/core/model"
)

// dirResolver implements the "dir" scheme: it hashes every file under a
// directory the same way "file" does, then folds the resulting
// (path, digest) pairs into a single synthetic digest, so the directory
// can be referenced as one opaque artifact instead of many.
type dirResolver struct{}

func (dirResolver) Resolve(uri string, opts Options) (map[string]model.DigestSet, error) {
	absPath := resolveAbs(uri, opts.BaseDir)
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("resolve: stat %s: %w", uri, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("resolve: dir scheme requires a directory, got file %s", uri)
	}

	var jobs []digestJob
	if err := walk(absPath, opts.BaseDir, opts, info, map[string]bool{}, &jobs); err != nil {
		return nil, err
	}
	perFile, err := digestAll(jobs, opts.algorithms(), opts.NormalizeLineEndings)
	if err != nil {
		return nil, err
	}

	primaryAlgo := opts.algorithms()[0]
	synthetic, err := syntheticDigest(perFile, primaryAlgo)
	if err != nil {
		return nil, err
	}

	relPath := normalizeRelPath(uri)
	return map[string]model.DigestSet{
		relPath: {"sha256": synthetic},
	}, nil
}

// syntheticDigest builds a sorted [path, digestHex] array, canonicalizes
// it via JCS, and returns the SHA-256 hex digest of the result — giving
// the same value regardless of the order the directory walk enumerated
// entries in (spec's "[ADDED]" clarification in SPEC_FULL.md §4.4).
func syntheticDigest(perFile map[string]model.DigestSet, algo string) (string, error) {
	paths := make([]string, 0, len(perFile))
	for p := range perFile {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	pairs := make([][2]string, 0, len(paths))
	for _, p := range paths {
		digest, ok := perFile[p][algo]
		if !ok {
			return "", fmt.Errorf("resolve: file %q has no %s digest", p, algo)
		}
		pairs = append(pairs, [2]string{p, digest})
	}

	raw, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("resolve: marshal synthetic digest input: %w", err)
	}
	canonicalized, err := jcs.CanonicalizeJSON(raw)
	if err != nil {
		return "", fmt.Errorf("resolve: canonicalize synthetic digest input: %w", err)
	}
	sum := sha256.Sum256(canonicalized)
	return hex.EncodeToString(sum[:]), nil
}
