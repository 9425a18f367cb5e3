package verify

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ossforge/toto/core/canonical"
	toterrors "github.com/ossforge/toto/core/errors"
	"github.com/ossforge/toto/core/keys"
	"github.com/ossforge/toto/core/model"
)

// candidateLink is one <step>.<prefix>.link file's decoded payload plus
// the primary keyids whose signature over it verified.
type candidateLink struct {
	path      string
	link      *model.Link
	signedBy  map[string]bool
	sublayout *model.Layout // non-nil if the payload's _type is "layout"
	envelope  *model.Envelope
}

// agreementCluster groups every candidate link whose command/materials/
// products agree after canonicalization, merging the set of primaries that
// validly signed any file in the cluster.
type agreementCluster struct {
	link    *model.Link
	signers map[string]bool
}

// findCandidateFiles lists every file in evidenceDir that could be a link
// for stepName: "<step>.<anything>.link", excluding in-progress
// "<step>.<prefix>.start.link" files left behind by an unfinished
// record-start/record-stop pair.
func findCandidateFiles(evidenceDir, stepName string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(evidenceDir, stepName+".*.link"))
	if err != nil {
		return nil, fmt.Errorf("verify: glob candidate links for %q: %w", stepName, err)
	}
	var out []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if strings.HasSuffix(m, ".start.link") {
			continue
		}
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

// loadCandidate reads and decodes one link file without checking its
// signature yet — that happens once the caller knows which owner keyset to
// verify against. A payload whose _type is "layout" is a sublayout rather
// than an ordinary link; either way the schema gate in DecodeLayout/
// DecodeLink runs before the caller ever sees the typed result.
func loadCandidate(path string) (*candidateLink, error) {
	// #nosec G304 -- path comes from this package's own directory listing.
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, toterrors.Wrap(err, toterrors.KindIO, "read_candidate_link", "", toterrors.Context{Path: path})
	}

	isSublayout, err := model.IsSublayout(raw)
	if err != nil {
		return nil, toterrors.Wrap(err, toterrors.KindSchema, "probe_candidate_type", "", toterrors.Context{Path: path})
	}

	if isSublayout {
		sub, envelope, err := model.DecodeLayout(raw)
		if err != nil {
			return nil, toterrors.Wrap(err, toterrors.KindSchema, "decode_sublayout", "", toterrors.Context{Path: path})
		}
		return &candidateLink{path: path, sublayout: sub, envelope: envelope}, nil
	}

	link, envelope, err := model.DecodeLink(raw)
	if err != nil {
		return nil, toterrors.Wrap(err, toterrors.KindSchema, "decode_candidate_link", "", toterrors.Context{Path: path})
	}
	return &candidateLink{path: path, link: link, envelope: envelope}, nil
}

// clusterKey canonicalizes the subset of a link a queue agreement check
// cares about — command, materials, products — so two candidate files with
// byte-different signatures but identical evidence land in the same cluster.
func clusterKey(link *model.Link) (string, error) {
	shape := struct {
		Command   []string                  `json:"command"`
		Materials map[string]model.DigestSet `json:"materials"`
		Products  map[string]model.DigestSet `json:"products"`
	}{Command: link.Command, Materials: link.Materials, Products: link.Products}
	encoded, err := canonical.Encode(shape)
	if err != nil {
		return "", fmt.Errorf("verify: canonicalize link for clustering: %w", err)
	}
	return string(encoded), nil
}

// selectRepresentative picks, among clusters whose signer count meets
// threshold, the one with the most distinct signers; ties are broken by
// the lexicographically smallest sorted-signer-set string, which is
// deterministic and independent of map iteration order.
func selectRepresentative(clusters map[string]*agreementCluster, threshold int) (*model.Link, map[string]bool, bool) {
	var best *agreementCluster
	var bestKey string
	for _, c := range clusters {
		if len(c.signers) < threshold {
			continue
		}
		key := sortedJoin(c.signers)
		switch {
		case best == nil:
			best, bestKey = c, key
		case len(c.signers) > len(best.signers):
			best, bestKey = c, key
		case len(c.signers) == len(best.signers) && key < bestKey:
			best, bestKey = c, key
		}
	}
	if best == nil {
		return nil, nil, false
	}
	return best.link, best.signers, true
}

func sortedJoin(set map[string]bool) string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// stepOwnerKeys narrows layout's key set down to the ones a step's
// pubkeys entry actually names — the "authorized keyset K" spec §4.7 step 4
// scopes signature verification to.
func stepOwnerKeys(layout *model.Layout, pubKeys []string) map[string]keys.PublicKey {
	owners := make(map[string]keys.PublicKey, len(pubKeys))
	for _, id := range pubKeys {
		if pk, ok := layout.Keys[id]; ok {
			owners[id] = pk
		}
	}
	return owners
}
