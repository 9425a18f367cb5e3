package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PayloadTypeLink is the "_type" discriminator a Link payload carries.
const PayloadTypeLink = "link"

// Link is signed evidence that a step executed with particular
// materials and products.
type Link struct {
	Type        string               `json:"_type"`
	Name        string               `json:"name"`
	Command     []string             `json:"command"`
	Materials   map[string]DigestSet `json:"materials"`
	Products    map[string]DigestSet `json:"products"`
	Byproducts  Byproducts           `json:"byproducts,omitempty"`
	Environment map[string]any       `json:"environment,omitempty"`
}

// linkWire mirrors Link but decodes Environment through json.Number so
// integer-vs-float can be told apart, instead of encoding/json's default
// float64-for-every-number behavior.
type linkWire struct {
	Type        string                     `json:"_type"`
	Name        string                     `json:"name"`
	Command     []string                   `json:"command"`
	Materials   map[string]DigestSet       `json:"materials"`
	Products    map[string]DigestSet       `json:"products"`
	Byproducts  Byproducts                 `json:"byproducts,omitempty"`
	Environment map[string]json.RawMessage `json:"environment,omitempty"`
}

// UnmarshalJSON decodes a Link, restricting Environment values to the
// string/bool/integer universe the canonical encoder accepts.
func (l *Link) UnmarshalJSON(data []byte) error {
	var wire linkWire
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&wire); err != nil {
		return fmt.Errorf("model: decode link: %w", err)
	}
	l.Type = wire.Type
	l.Name = wire.Name
	l.Command = wire.Command
	l.Materials = wire.Materials
	l.Products = wire.Products
	l.Byproducts = wire.Byproducts
	if wire.Environment != nil {
		l.Environment = make(map[string]any, len(wire.Environment))
		for k, raw := range wire.Environment {
			v, err := decodeScalar(raw)
			if err != nil {
				return fmt.Errorf("model: environment[%q]: %w", k, err)
			}
			l.Environment[k] = v
		}
	}
	return nil
}

func decodeScalar(raw json.RawMessage) (any, error) {
	var probe any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&probe); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	switch v := probe.(type) {
	case string, bool:
		return v, nil
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("non-integer number %q not permitted", v.String())
		}
		return i, nil
	default:
		return nil, fmt.Errorf("value must be a string, bool, or integer")
	}
}

// Validate checks the invariants spec §3 places on a Link: it must be
// named, its _type (when set) must be "link", and its material/product
// keys must already be normalized paths.
func (l *Link) Validate() error {
	if l.Type != "" && l.Type != PayloadTypeLink {
		return fmt.Errorf("model: link _type must be %q, got %q", PayloadTypeLink, l.Type)
	}
	if l.Name == "" {
		return fmt.Errorf("model: link name must not be empty")
	}
	for path := range l.Materials {
		if err := validateNormalizedPath(path); err != nil {
			return fmt.Errorf("model: material %q: %w", path, err)
		}
	}
	for path := range l.Products {
		if err := validateNormalizedPath(path); err != nil {
			return fmt.Errorf("model: product %q: %w", path, err)
		}
	}
	return scalarEnvironment(l.Environment)
}

func validateNormalizedPath(path string) error {
	if path == "" {
		return fmt.Errorf("path must not be empty")
	}
	if strings.Contains(path, "\\") {
		return fmt.Errorf("path must use / separators")
	}
	if strings.Contains(path, "//") {
		return fmt.Errorf("path must not contain repeated separators")
	}
	if strings.HasSuffix(path, "/") {
		return fmt.Errorf("path must not have a trailing separator")
	}
	return nil
}
