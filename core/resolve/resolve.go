// Package resolve implements the artifact resolvers: pluggable hashers
// that turn an opaque URI into {normalized-path → digest-set} entries,
// selected by URI scheme. "file" (the default), "dir", and "ostree" are
// registered at init time; a caller may register additional schemes.
package resolve

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ossforge/toto/core/model"
)

// Options carries the per-call configuration spec §4.4/§9 requires to
// flow through an explicit value rather than global state: the base
// path artifact URIs are resolved relative to, the exclude pattern
// set, the hash algorithms to compute, and whether text resolvers
// normalize line endings before hashing.
type Options struct {
	BaseDir              string
	Excludes             []string
	HashAlgorithms       []string
	NormalizeLineEndings bool
}

// DefaultOptions returns the spec's defaults: SHA-256 only, no excludes,
// no base path, no line-ending normalization.
func DefaultOptions() Options {
	return Options{HashAlgorithms: []string{"sha256"}}
}

func (o Options) algorithms() []string {
	if len(o.HashAlgorithms) == 0 {
		return []string{"sha256"}
	}
	return o.HashAlgorithms
}

// Resolver turns one URI (scheme stripped) into the entries it
// contributes to a material/product set. Implementations must be pure
// functions of uri and opts.
type Resolver interface {
	Resolve(uri string, opts Options) (map[string]model.DigestSet, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Resolver{}
)

// Register installs r as the resolver for scheme. Re-registering a
// scheme replaces the previous resolver, so a caller can override a
// built-in (e.g. swap in a stricter "file" resolver) at startup.
func Register(scheme string, r Resolver) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[scheme] = r
}

func lookup(scheme string) (Resolver, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[scheme]
	return r, ok
}

// Resolve dispatches uri to the resolver named by its scheme prefix
// ("scheme:rest"); a uri with no scheme prefix is resolved by "file".
func Resolve(uri string, opts Options) (map[string]model.DigestSet, error) {
	scheme, rest := splitScheme(uri)
	resolver, ok := lookup(scheme)
	if !ok {
		return nil, fmt.Errorf("resolve: no resolver registered for scheme %q", scheme)
	}
	return resolver.Resolve(rest, opts)
}

func splitScheme(uri string) (scheme, rest string) {
	idx := strings.Index(uri, ":")
	if idx <= 1 {
		// A single-letter prefix before ':' is almost certainly a Windows
		// drive letter, not a scheme; treat the whole thing as a file path.
		return "file", uri
	}
	return uri[:idx], uri[idx+1:]
}

func init() {
	Register("file", fileResolver{})
	Register("dir", dirResolver{})
	Register("ostree", ostreeResolver{})
}
