package resolve

import (
	"bufio"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/ossforge/toto/core/model"
	"golang.org/x/sync/errgroup"
)

func newHasher(algo string) (hash.Hash, error) {
	switch algo {
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("resolve: unsupported hash algorithm %q", algo)
	}
}

// digestFile computes a DigestSet for the file at absPath across algos,
// streaming it once regardless of algorithm count. When normalizeCRLF
// is set, "\r\n" sequences are collapsed to "\n" before hashing — the
// line-ending normalization spec §4.4 permits for text resolvers.
func digestFile(absPath string, algos []string, normalizeCRLF bool) (model.DigestSet, error) {
	// #nosec G304 -- absPath is derived from caller-declared material/product URIs.
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("resolve: open %s: %w", absPath, err)
	}
	defer func() {
		_ = file.Close()
	}()

	hashers := make(map[string]hash.Hash, len(algos))
	writers := make([]io.Writer, 0, len(algos))
	for _, algo := range algos {
		h, err := newHasher(algo)
		if err != nil {
			return nil, err
		}
		hashers[algo] = h
		writers = append(writers, h)
	}
	dest := io.MultiWriter(writers...)

	reader := io.Reader(bufio.NewReader(file))
	if normalizeCRLF {
		reader = &crlfStripper{r: reader}
	}
	if _, err := io.Copy(dest, reader); err != nil {
		return nil, fmt.Errorf("resolve: hash %s: %w", absPath, err)
	}

	digests := make(model.DigestSet, len(algos))
	for algo, h := range hashers {
		digests[algo] = hex.EncodeToString(h.Sum(nil))
	}
	return digests, nil
}

// crlfStripper is an io.Reader that drops every '\r' immediately
// followed by '\n', so CRLF line endings hash the same as LF ones.
type crlfStripper struct {
	r         io.Reader
	pendingCR bool
	carry     []byte // overflow bytes produced but not yet returned
	carryErr  error
}

func (c *crlfStripper) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(c.carry) > 0 {
		n := copy(p, c.carry)
		c.carry = c.carry[n:]
		if len(c.carry) == 0 {
			return n, c.carryErr
		}
		return n, nil
	}

	buf := make([]byte, len(p))
	n, err := c.r.Read(buf)
	out := make([]byte, 0, n+1)
	for i := 0; i < n; i++ {
		b := buf[i]
		if c.pendingCR {
			c.pendingCR = false
			if b == '\n' {
				out = append(out, b)
				continue
			}
			out = append(out, '\r')
		}
		if b == '\r' {
			c.pendingCR = true
			continue
		}
		out = append(out, b)
	}
	if err != nil && c.pendingCR {
		c.pendingCR = false
		out = append(out, '\r')
	}

	copied := copy(p, out)
	if copied < len(out) {
		c.carry = out[copied:]
		c.carryErr = err
		return copied, nil
	}
	return copied, err
}

// digestJob names one file to hash and the relative path its resulting
// digest set will be recorded under.
type digestJob struct {
	relPath string
	absPath string
}

// digestAll hashes every job concurrently, bounded to GOMAXPROCS, and
// returns the results keyed by relPath. Concurrency is safe to expose
// here because the caller only consumes the finished map — canonical
// encoding sorts keys downstream, so the order hashing completed in
// never affects the signed output (spec §5).
func digestAll(jobs []digestJob, algos []string, normalizeCRLF bool) (map[string]model.DigestSet, error) {
	results := make(map[string]model.DigestSet, len(jobs))
	var resultsMu sync.Mutex
	group := errgroup.Group{}
	group.SetLimit(runtime.GOMAXPROCS(0))

	for _, job := range jobs {
		job := job
		group.Go(func() error {
			digest, err := digestFile(job.absPath, algos, normalizeCRLF)
			if err != nil {
				return err
			}
			resultsMu.Lock()
			results[job.relPath] = digest
			resultsMu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
