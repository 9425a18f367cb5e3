package resolve

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ossforge/toto/core/model"
)

var ostreeObjectID = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ostreeResolver implements the "ostree" scheme. OSTree commits are
// already content-addressed by SHA-256 object id, so resolving one is
// validation and normalization, not re-hashing file contents.
type ostreeResolver struct{}

func (ostreeResolver) Resolve(uri string, opts Options) (map[string]model.DigestSet, error) {
	objectID := strings.ToLower(strings.TrimSpace(uri))
	if !ostreeObjectID.MatchString(objectID) {
		return nil, fmt.Errorf("resolve: ostree commit %q is not a 64-hex-char object id", uri)
	}
	return map[string]model.DigestSet{
		normalizeRelPath(uri): {"sha256": objectID},
	}, nil
}
