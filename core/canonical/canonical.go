// Package canonical produces the deterministic byte representation of a
// metadata payload that signatures are computed and verified over.
//
// The encoding follows the same rules across implementations that speak
// in-toto metadata: object keys sorted by their UTF-8 byte order, minimal
// string escaping, no floating point numbers, no insignificant whitespace.
// It intentionally does not reuse a generic JSON-canonicalization library
// (see DESIGN.md) because those permit floats and full-Unicode string
// content, both of which this format rejects outright.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Encode returns the canonical byte encoding of value. value must be built
// from the supported type set: nil, bool, string, an integer type, a
// []byte-free slice of supported values, or a map[string]any (or a type
// that marshals to one of those shapes via encoding/json). Floats, NaN,
// Inf, and any other JSON number that is not an integer are rejected.
func Encode(value any) ([]byte, error) {
	normalized, err := normalize(value)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encodeValue(&buf, normalized); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeJSON re-canonicalizes already-marshaled JSON bytes, which is the
// common case: a struct was marshaled with encoding/json for convenience
// and now needs the canonical byte form for signing or verification.
func EncodeJSON(data []byte) ([]byte, error) {
	var generic any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonical: decode json: %w", err)
	}
	if _, err := dec.Token(); err == nil {
		return nil, fmt.Errorf("canonical: trailing data after json value")
	}
	var buf bytes.Buffer
	if err := encodeValue(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// normalize routes values that are not already one of the generic decoded
// shapes (map[string]any, []any, json.Number, string, bool, nil) through
// encoding/json so callers can pass typed structs directly.
func normalize(value any) (any, error) {
	switch value.(type) {
	case nil, bool, string, json.Number, map[string]any, []any:
		return value, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal value: %w", err)
	}
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonical: decode marshaled value: %w", err)
	}
	return generic, nil
}

func encodeValue(buf *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case string:
		return encodeString(buf, v)
	case json.Number:
		return encodeNumber(buf, v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		fmt.Fprintf(buf, "%d", v)
		return nil
	case float64:
		return encodeNumber(buf, json.Number(fmt.Sprintf("%v", v)))
	case map[string]any:
		return encodeObject(buf, v)
	case []any:
		return encodeArray(buf, v)
	default:
		return fmt.Errorf("canonical: unsupported value type %T", value)
	}
}

func encodeObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Go string comparison is already UTF-8 byte order.
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := encodeValue(buf, obj[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func encodeArray(buf *bytes.Buffer, arr []any) error {
	buf.WriteByte('[')
	for i, v := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeValue(buf, v); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

// encodeString emits minimal JSON escaping: only '"' and '\' are escaped,
// control characters (U+0000-U+001F) are \u00xx escaped, and every other
// byte — including non-ASCII UTF-8 — passes through unchanged.
func encodeString(buf *bytes.Buffer, s string) error {
	buf.WriteByte('"')
	for _, b := range []byte(s) {
		switch {
		case b == '"' || b == '\\':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		case b < 0x20:
			fmt.Fprintf(buf, "\\u%04x", b)
		default:
			buf.WriteByte(b)
		}
	}
	buf.WriteByte('"')
	return nil
}

// encodeNumber rejects floats and emits integers with no leading zeros and
// no decimal point, per the payload's "integers only" contract.
func encodeNumber(buf *bytes.Buffer, n json.Number) error {
	s := n.String()
	if _, err := n.Int64(); err != nil {
		if f, ferr := n.Float64(); ferr == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return fmt.Errorf("canonical: number %q is not finite", s)
		}
		return fmt.Errorf("canonical: floating point numbers are not permitted in payloads: %q", s)
	}
	if len(s) > 1 {
		trimmed := s
		neg := false
		if trimmed[0] == '-' {
			neg = true
			trimmed = trimmed[1:]
		}
		if len(trimmed) > 1 && trimmed[0] == '0' {
			return fmt.Errorf("canonical: leading zero in integer %q", s)
		}
		_ = neg
	}
	buf.WriteString(s)
	return nil
}
