package verify

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/ossforge/toto/core/model"
)

// substTokenPattern matches a {NAME} parameter token. NAME is restricted to
// the identifier-like charset a layout author would reasonably use; a bare
// "{" or "}" that is not part of a well-formed token is left untouched.
var substTokenPattern = regexp.MustCompile(`\{([A-Za-z0-9_.-]+)\}`)

// substituteString replaces every {NAME} token in s with subs[NAME].
// An undefined token is an error: spec requires substitution to fail
// closed rather than silently leave a token or an empty string behind.
func substituteString(s string, subs map[string]string) (string, error) {
	var firstErr error
	result := substTokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		name := tok[1 : len(tok)-1]
		val, ok := subs[name]
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("verify: undefined substitution token %q", name)
			}
			return tok
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

func substituteSlice(in []string, subs map[string]string) ([]string, error) {
	out := make([]string, len(in))
	for i, s := range in {
		v, err := substituteString(s, subs)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func substituteRule(r model.Rule, subs map[string]string) (model.Rule, error) {
	var err error
	if r.Pattern, err = substituteString(r.Pattern, subs); err != nil {
		return model.Rule{}, err
	}
	if r.SrcPrefix, err = substituteString(r.SrcPrefix, subs); err != nil {
		return model.Rule{}, err
	}
	if r.DstPrefix, err = substituteString(r.DstPrefix, subs); err != nil {
		return model.Rule{}, err
	}
	if r.FromStep, err = substituteString(r.FromStep, subs); err != nil {
		return model.Rule{}, err
	}
	if r.Filename, err = substituteString(r.Filename, subs); err != nil {
		return model.Rule{}, err
	}
	return r, nil
}

func substituteRules(in []model.Rule, subs map[string]string) ([]model.Rule, error) {
	out := make([]model.Rule, len(in))
	for i, r := range in {
		sr, err := substituteRule(r, subs)
		if err != nil {
			return nil, err
		}
		out[i] = sr
	}
	return out, nil
}

// deepCopyLayout clones l via a marshal/unmarshal round trip, so
// substitution always operates on a working copy and never mutates the
// signed-over payload a caller might reuse.
func deepCopyLayout(l *model.Layout) (*model.Layout, error) {
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("verify: copy layout: %w", err)
	}
	var copied model.Layout
	if err := json.Unmarshal(raw, &copied); err != nil {
		return nil, fmt.Errorf("verify: copy layout: %w", err)
	}
	return &copied, nil
}

// substituteLayout applies subs to every {NAME}-bearing field spec §4.7
// step 3 names: expected_command, rule operands, and inspection run. It
// operates on a deep copy so the caller's original layout (and its
// signature-bearing canonical bytes) is never touched.
func substituteLayout(l *model.Layout, subs map[string]string) (*model.Layout, error) {
	if len(subs) == 0 {
		return l, nil
	}
	copied, err := deepCopyLayout(l)
	if err != nil {
		return nil, err
	}
	for i := range copied.Steps {
		step := &copied.Steps[i]
		if step.ExpectedCommand, err = substituteSlice(step.ExpectedCommand, subs); err != nil {
			return nil, fmt.Errorf("verify: step %q: %w", step.Name, err)
		}
		if step.ExpectedMaterials, err = substituteRules(step.ExpectedMaterials, subs); err != nil {
			return nil, fmt.Errorf("verify: step %q: %w", step.Name, err)
		}
		if step.ExpectedProducts, err = substituteRules(step.ExpectedProducts, subs); err != nil {
			return nil, fmt.Errorf("verify: step %q: %w", step.Name, err)
		}
	}
	for i := range copied.Inspect {
		inspection := &copied.Inspect[i]
		if inspection.Run, err = substituteSlice(inspection.Run, subs); err != nil {
			return nil, fmt.Errorf("verify: inspection %q: %w", inspection.Name, err)
		}
		if inspection.ExpectedMaterials, err = substituteRules(inspection.ExpectedMaterials, subs); err != nil {
			return nil, fmt.Errorf("verify: inspection %q: %w", inspection.Name, err)
		}
		if inspection.ExpectedProducts, err = substituteRules(inspection.ExpectedProducts, subs); err != nil {
			return nil, fmt.Errorf("verify: inspection %q: %w", inspection.Name, err)
		}
	}
	return copied, nil
}
