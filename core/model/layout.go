package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/ossforge/toto/core/keys"
)

// PayloadTypeLayout is the "_type" discriminator a Layout payload carries.
const PayloadTypeLayout = "layout"

// Layout is a project owner's signed declaration of the expected
// pipeline: its functionaries, steps, and verifier-side inspections.
type Layout struct {
	Type    string                    `json:"_type"`
	Expires time.Time                 `json:"expires"`
	Readme  string                    `json:"readme,omitempty"`
	Keys    map[string]keys.PublicKey `json:"keys"`
	Steps   []Step                    `json:"steps"`
	Inspect []Inspection              `json:"inspect,omitempty"`
}

// Step is a declared task authorized functionaries run, evidenced by one
// or more Links.
type Step struct {
	Name              string   `json:"name"`
	ExpectedCommand   []string `json:"expected_command,omitempty"`
	PubKeys           []string `json:"pubkeys"`
	Threshold         int      `json:"threshold"`
	ExpectedMaterials []Rule   `json:"expected_materials,omitempty"`
	ExpectedProducts  []Rule   `json:"expected_products,omitempty"`
}

// Inspection is a verifier-side task whose evidence is generated at
// verification time rather than read from the evidence directory.
type Inspection struct {
	Name              string   `json:"name"`
	Run               []string `json:"run,omitempty"`
	ExpectedMaterials []Rule   `json:"expected_materials,omitempty"`
	ExpectedProducts  []Rule   `json:"expected_products,omitempty"`
}

// Validate checks the invariants spec §3 places on a Layout: unique,
// separator-free step/inspection names, and that every pubkeys entry a
// Step names resolves to a key in Keys.
func (l *Layout) Validate() error {
	if l.Type != "" && l.Type != PayloadTypeLayout {
		return fmt.Errorf("model: layout _type must be %q, got %q", PayloadTypeLayout, l.Type)
	}
	seen := map[string]struct{}{}
	for i := range l.Steps {
		step := &l.Steps[i]
		if err := validateName(step.Name); err != nil {
			return fmt.Errorf("model: step %d: %w", i, err)
		}
		if _, dup := seen[step.Name]; dup {
			return fmt.Errorf("model: duplicate step name %q", step.Name)
		}
		seen[step.Name] = struct{}{}
		if err := step.validate(l.Keys); err != nil {
			return fmt.Errorf("model: step %q: %w", step.Name, err)
		}
	}
	inspectionNames := map[string]struct{}{}
	for i := range l.Inspect {
		inspection := &l.Inspect[i]
		if err := validateName(inspection.Name); err != nil {
			return fmt.Errorf("model: inspection %d: %w", i, err)
		}
		if _, dup := inspectionNames[inspection.Name]; dup {
			return fmt.Errorf("model: duplicate inspection name %q", inspection.Name)
		}
		if _, dup := seen[inspection.Name]; dup {
			return fmt.Errorf("model: inspection name %q collides with a step name", inspection.Name)
		}
		inspectionNames[inspection.Name] = struct{}{}
	}
	return nil
}

// Expired reports whether now is at or past l.Expires.
func (l *Layout) Expired(now time.Time) bool {
	return !now.Before(l.Expires)
}

// validate checks a Step's pubkeys/threshold invariants against the
// layout's key set: at least one pubkey (even threshold=1 cannot be
// satisfied by an empty pubkeys set — rejected at load per spec §3),
// threshold in [1, len(pubkeys)], and every named keyid present in keys.
func (s *Step) validate(layoutKeys map[string]keys.PublicKey) error {
	if len(s.PubKeys) == 0 {
		return fmt.Errorf("pubkeys must not be empty")
	}
	if s.Threshold < 1 {
		return fmt.Errorf("threshold must be >= 1")
	}
	if s.Threshold > len(s.PubKeys) {
		return fmt.Errorf("threshold %d exceeds pubkeys count %d", s.Threshold, len(s.PubKeys))
	}
	for _, keyID := range s.PubKeys {
		if _, ok := layoutKeys[keyID]; !ok {
			return fmt.Errorf("pubkeys entry %q not present in layout keys", keyID)
		}
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("name %q must not contain path separators", name)
	}
	return nil
}
