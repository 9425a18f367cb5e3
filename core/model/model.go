// Package model implements the in-toto data model: Layout, Step,
// Inspection, Link, and the envelope wrappers that carry their
// signatures, plus the invariant checks spec §3 requires on load and on
// construction.
package model

// DigestSet is an artifact's multi-hash digest, keyed by lowercase IANA
// hash function name ("sha256", "sha512").
type DigestSet map[string]string

// Byproducts captures what a recorded command emitted, beyond the
// materials/products it touched.
type Byproducts struct {
	ReturnValue *int   `json:"return-value,omitempty"`
	Stdout      string `json:"stdout,omitempty"`
	Stderr      string `json:"stderr,omitempty"`
	Timeout     bool   `json:"timeout,omitempty"`
}

// scalarEnvironment reports whether every value in env is a string,
// bool, or integer — the value universe a Link's environment map is
// restricted to so a captured snapshot is always re-signable through
// the canonical encoder.
func scalarEnvironment(env map[string]any) error {
	for k, v := range env {
		switch v.(type) {
		case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			continue
		default:
			return &invalidEnvironmentValue{key: k, value: v}
		}
	}
	return nil
}

type invalidEnvironmentValue struct {
	key   string
	value any
}

func (e *invalidEnvironmentValue) Error() string {
	return "model: environment value for " + e.key + " is not a scalar"
}
