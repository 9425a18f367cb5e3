package scenarios

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	toterrors "github.com/ossforge/toto/core/errors"
	"github.com/ossforge/toto/core/keys"
	"github.com/ossforge/toto/core/model"
	"github.com/ossforge/toto/core/verify"
)

// TestHappyPathTwoStepChain covers a clone step whose sole product feeds
// a package step's materials, both signed by their authorized
// functionary: the chain must verify clean.
func TestHappyPathTwoStepChain(t *testing.T) {
	dir := t.TempDir()
	ownerSigner, ownerKey := generateSigner(t)
	cloner, clonerKey := generateSigner(t)
	packager, packagerKey := generateSigner(t)

	layout := baseLayout(ownerKey, time.Now().Add(time.Hour))
	layout.Keys[clonerKey.KeyID] = clonerKey
	layout.Keys[packagerKey.KeyID] = packagerKey
	layout.Steps = []model.Step{
		{
			Name:             "clone",
			PubKeys:          []string{clonerKey.KeyID},
			Threshold:        1,
			ExpectedProducts: []model.Rule{{Tag: model.RuleCreate, Pattern: "*"}, {Tag: model.RuleDisallow, Pattern: "*"}},
		},
		{
			Name:      "package",
			PubKeys:   []string{packagerKey.KeyID},
			Threshold: 1,
			ExpectedMaterials: []model.Rule{
				{Tag: model.RuleMatch, Pattern: "foo.py", Side: model.SideProducts, FromStep: "clone"},
				{Tag: model.RuleDisallow, Pattern: "*"},
			},
			ExpectedProducts: []model.Rule{{Tag: model.RuleCreate, Pattern: "*"}, {Tag: model.RuleDisallow, Pattern: "*"}},
		},
	}

	writeLink(t, dir, &model.Link{
		Type:     model.PayloadTypeLink,
		Name:     "clone",
		Products: map[string]model.DigestSet{"foo.py": digest("shared-digest")},
	}, cloner)
	writeLink(t, dir, &model.Link{
		Type:      model.PayloadTypeLink,
		Name:      "package",
		Materials: map[string]model.DigestSet{"foo.py": digest("shared-digest")},
		Products:  map[string]model.DigestSet{"foo.tar.gz": digest("archive-digest")},
	}, packager)

	result, err := verify.Verify(context.Background(), verify.Options{
		LayoutData:  layoutBytes(t, layout, ownerSigner),
		OwnerKeys:   map[string]keys.PublicKey{ownerKey.KeyID: ownerKey},
		EvidenceDir: dir,
	})
	if err != nil {
		t.Fatalf("expected the chain to pass, got %v", err)
	}
	if result.Status != verify.StatusPass {
		t.Fatalf("expected StatusPass, got %v", result.Status)
	}
	if len(result.Steps) != 2 {
		t.Fatalf("expected two step reports, got %d", len(result.Steps))
	}
}

// TestTamperedMaterialBetweenStepsFailsRule mirrors the happy path except
// the digest package claims for foo.py as a material disagrees with what
// clone actually produced: the cross-step MATCH rule must catch it.
func TestTamperedMaterialBetweenStepsFailsRule(t *testing.T) {
	dir := t.TempDir()
	ownerSigner, ownerKey := generateSigner(t)
	cloner, clonerKey := generateSigner(t)
	packager, packagerKey := generateSigner(t)

	layout := baseLayout(ownerKey, time.Now().Add(time.Hour))
	layout.Keys[clonerKey.KeyID] = clonerKey
	layout.Keys[packagerKey.KeyID] = packagerKey
	layout.Steps = []model.Step{
		{
			Name:             "clone",
			PubKeys:          []string{clonerKey.KeyID},
			Threshold:        1,
			ExpectedProducts: []model.Rule{{Tag: model.RuleCreate, Pattern: "*"}, {Tag: model.RuleDisallow, Pattern: "*"}},
		},
		{
			Name:      "package",
			PubKeys:   []string{packagerKey.KeyID},
			Threshold: 1,
			ExpectedMaterials: []model.Rule{
				{Tag: model.RuleMatch, Pattern: "foo.py", Side: model.SideProducts, FromStep: "clone"},
				{Tag: model.RuleDisallow, Pattern: "*"},
			},
		},
	}

	writeLink(t, dir, &model.Link{
		Type:     model.PayloadTypeLink,
		Name:     "clone",
		Products: map[string]model.DigestSet{"foo.py": digest("original-digest")},
	}, cloner)
	writeLink(t, dir, &model.Link{
		Type:      model.PayloadTypeLink,
		Name:      "package",
		Materials: map[string]model.DigestSet{"foo.py": digest("tampered-digest")},
	}, packager)

	_, err := verify.Verify(context.Background(), verify.Options{
		LayoutData:  layoutBytes(t, layout, ownerSigner),
		OwnerKeys:   map[string]keys.PublicKey{ownerKey.KeyID: ownerKey},
		EvidenceDir: dir,
	})
	if err == nil {
		t.Fatal("expected the tampered material to fail the cross-step MATCH rule")
	}
	if toterrors.KindOf(err) != toterrors.KindRule {
		t.Fatalf("expected KindRule, got %v", toterrors.KindOf(err))
	}
}

// TestExpiredLayoutFails checks a layout whose expires timestamp has
// already passed is rejected before any step is even examined.
func TestExpiredLayoutFails(t *testing.T) {
	dir := t.TempDir()
	ownerSigner, ownerKey := generateSigner(t)
	layout := baseLayout(ownerKey, time.Now().Add(-24*time.Hour))
	layout.Steps = []model.Step{{Name: "clone", PubKeys: []string{ownerKey.KeyID}, Threshold: 1}}

	_, err := verify.Verify(context.Background(), verify.Options{
		LayoutData:  layoutBytes(t, layout, ownerSigner),
		OwnerKeys:   map[string]keys.PublicKey{ownerKey.KeyID: ownerKey},
		EvidenceDir: dir,
	})
	if err == nil {
		t.Fatal("expected an expired layout to fail verification")
	}
	if toterrors.KindOf(err) != toterrors.KindExpired {
		t.Fatalf("expected KindExpired, got %v", toterrors.KindOf(err))
	}
}

// TestUnauthorizedSignerLinkIsDiscardedThenThresholdFails checks that a
// link signed by a functionary not listed in the step's pubkeys is
// silently discarded rather than accepted, which then starves the step
// of any authorized evidence at all.
func TestUnauthorizedSignerLinkIsDiscardedThenThresholdFails(t *testing.T) {
	dir := t.TempDir()
	ownerSigner, ownerKey := generateSigner(t)
	_, authorizedKey := generateSigner(t)
	impostor, _ := generateSigner(t)

	layout := baseLayout(ownerKey, time.Now().Add(time.Hour))
	layout.Keys[authorizedKey.KeyID] = authorizedKey
	layout.Steps = []model.Step{{Name: "clone", PubKeys: []string{authorizedKey.KeyID}, Threshold: 1}}

	writeLink(t, dir, &model.Link{Type: model.PayloadTypeLink, Name: "clone"}, impostor)

	_, err := verify.Verify(context.Background(), verify.Options{
		LayoutData:  layoutBytes(t, layout, ownerSigner),
		OwnerKeys:   map[string]keys.PublicKey{ownerKey.KeyID: ownerKey},
		EvidenceDir: dir,
	})
	if err == nil {
		t.Fatal("expected the unauthorized signer's link to leave the step without enough evidence")
	}
	if toterrors.KindOf(err) != toterrors.KindThreshold {
		t.Fatalf("expected KindThreshold, got %v", toterrors.KindOf(err))
	}
}

// TestThresholdMetDespiteDisagreeingNoise checks that when three links
// exist for a step with threshold 2, two agreeing and one not, the two
// that agree are enough to pass even though the third is present.
func TestThresholdMetDespiteDisagreeingNoise(t *testing.T) {
	dir := t.TempDir()
	ownerSigner, ownerKey := generateSigner(t)
	first, firstKey := generateSigner(t)
	second, secondKey := generateSigner(t)
	third, thirdKey := generateSigner(t)

	layout := baseLayout(ownerKey, time.Now().Add(time.Hour))
	layout.Keys[firstKey.KeyID] = firstKey
	layout.Keys[secondKey.KeyID] = secondKey
	layout.Keys[thirdKey.KeyID] = thirdKey
	layout.Steps = []model.Step{{
		Name:      "build",
		PubKeys:   []string{firstKey.KeyID, secondKey.KeyID, thirdKey.KeyID},
		Threshold: 2,
	}}

	agreed := &model.Link{Type: model.PayloadTypeLink, Name: "build", Products: map[string]model.DigestSet{"out.bin": digest("agreed-digest")}}
	disagreed := &model.Link{Type: model.PayloadTypeLink, Name: "build", Products: map[string]model.DigestSet{"out.bin": digest("disagreed-digest")}}
	writeLink(t, dir, agreed, first)
	writeLink(t, dir, agreed, second)
	writeLink(t, dir, disagreed, third)

	result, err := verify.Verify(context.Background(), verify.Options{
		LayoutData:  layoutBytes(t, layout, ownerSigner),
		OwnerKeys:   map[string]keys.PublicKey{ownerKey.KeyID: ownerKey},
		EvidenceDir: dir,
	})
	if err != nil {
		t.Fatalf("expected the two agreeing signers to meet threshold, got %v", err)
	}
	if len(result.Steps[0].Signers) != 2 {
		t.Fatalf("expected exactly the two agreeing signers, got %v", result.Steps[0].Signers)
	}
}

// TestSublayoutProductsFeedParentMaterials checks that a step whose
// accepted candidate is itself a signed sublayout recurses correctly,
// and that the sublayout's final products satisfy the parent step's
// own rules as if it were an ordinary link.
func TestSublayoutProductsFeedParentMaterials(t *testing.T) {
	dir := t.TempDir()
	ownerSigner, ownerKey := generateSigner(t)
	delegate, delegateKey := generateSigner(t)
	subStepA, subStepAKey := generateSigner(t)
	subStepB, subStepBKey := generateSigner(t)
	packager, packagerKey := generateSigner(t)

	sub := &model.Layout{
		Type:    model.PayloadTypeLayout,
		Expires: time.Now().Add(time.Hour),
		Keys:    map[string]keys.PublicKey{subStepAKey.KeyID: subStepAKey, subStepBKey.KeyID: subStepBKey},
		Steps: []model.Step{
			{Name: "fetch", PubKeys: []string{subStepAKey.KeyID}, Threshold: 1},
			{Name: "compile", PubKeys: []string{subStepBKey.KeyID}, Threshold: 1},
		},
	}

	subDir := filepath.Join(dir, "build.delegate")
	if err := mkdirAll(subDir); err != nil {
		t.Fatalf("mkdir sub evidence dir: %v", err)
	}
	writeLink(t, subDir, &model.Link{
		Type:     model.PayloadTypeLink,
		Name:     "fetch",
		Products: map[string]model.DigestSet{"src.tar": digest("source-digest")},
	}, subStepA)
	writeLink(t, subDir, &model.Link{
		Type:     model.PayloadTypeLink,
		Name:     "compile",
		Products: map[string]model.DigestSet{"app.bin": digest("binary-digest")},
	}, subStepB)

	layout := baseLayout(ownerKey, time.Now().Add(time.Hour))
	layout.Keys[delegateKey.KeyID] = delegateKey
	layout.Keys[packagerKey.KeyID] = packagerKey
	layout.Steps = []model.Step{
		{Name: "build", PubKeys: []string{delegateKey.KeyID}, Threshold: 1},
		{
			Name:      "package",
			PubKeys:   []string{packagerKey.KeyID},
			Threshold: 1,
			ExpectedMaterials: []model.Rule{
				{Tag: model.RuleMatch, Pattern: "app.bin", Side: model.SideProducts, FromStep: "build"},
				{Tag: model.RuleDisallow, Pattern: "*"},
			},
		},
	}

	subEnvelope := signEnvelope(t, sub, delegate)
	writeEnvelopeAsLink(t, dir, "build", "delegate", subEnvelope)

	writeLink(t, dir, &model.Link{
		Type:      model.PayloadTypeLink,
		Name:      "package",
		Materials: map[string]model.DigestSet{"app.bin": digest("binary-digest")},
	}, packager)

	result, err := verify.Verify(context.Background(), verify.Options{
		LayoutData:  layoutBytes(t, layout, ownerSigner),
		OwnerKeys:   map[string]keys.PublicKey{ownerKey.KeyID: ownerKey},
		EvidenceDir: dir,
	})
	if err != nil {
		t.Fatalf("expected the sublayout chain to pass, got %v", err)
	}
	if result.Status != verify.StatusPass {
		t.Fatalf("expected StatusPass, got %v", result.Status)
	}
}
