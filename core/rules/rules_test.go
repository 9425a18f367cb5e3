package rules

import (
	"testing"

	toterrors "github.com/ossforge/toto/core/errors"
	"github.com/ossforge/toto/core/model"
)

func digest(hex string) model.DigestSet {
	return model.DigestSet{"sha256": hex}
}

func TestEvaluateAllowThenDisallowPassesWhenFullyConsumed(t *testing.T) {
	link := &model.Link{
		Name:      "build",
		Materials: map[string]model.DigestSet{"input.txt": digest("aaa")},
		Products:  map[string]model.DigestSet{"output.txt": digest("bbb")},
	}
	materialRules := []model.Rule{{Tag: model.RuleAllow, Pattern: "*"}}
	productRules := []model.Rule{{Tag: model.RuleAllow, Pattern: "*"}}

	if err := Evaluate(link, materialRules, productRules, LinkSet{}); err != nil {
		t.Fatalf("expected pass, got %v", err)
	}
}

func TestEvaluateDisallowFailsOnUnconsumedEntry(t *testing.T) {
	link := &model.Link{
		Name:     "build",
		Products: map[string]model.DigestSet{"output.txt": digest("bbb")},
	}
	productRules := []model.Rule{{Tag: model.RuleDisallow, Pattern: "*"}}

	err := Evaluate(link, nil, productRules, LinkSet{})
	if err == nil {
		t.Fatal("expected DISALLOW * to fail on a nonempty queue")
	}
	if toterrors.KindOf(err) != toterrors.KindRule {
		t.Fatalf("expected KindRule, got %v", toterrors.KindOf(err))
	}
}

func TestEvaluateTrailingQueueWithoutDisallowIsImplicitlyAuthorized(t *testing.T) {
	link := &model.Link{
		Name:     "build",
		Products: map[string]model.DigestSet{"output.txt": digest("bbb")},
	}
	// No rules at all: an empty rule list never touches the queue, and
	// spec's implicit-authorization clause means that's fine as long as
	// there is no trailing DISALLOW *.
	if err := Evaluate(link, nil, nil, LinkSet{}); err != nil {
		t.Fatalf("expected implicit authorization without DISALLOW *, got %v", err)
	}
}

func TestEvaluateRequireFailsWhenArtifactMissing(t *testing.T) {
	link := &model.Link{
		Name:      "build",
		Materials: map[string]model.DigestSet{"input.txt": digest("aaa")},
	}
	materialRules := []model.Rule{
		{Tag: model.RuleRequire, Filename: "README.md"},
		{Tag: model.RuleAllow, Pattern: "*"},
	}
	err := Evaluate(link, materialRules, nil, LinkSet{})
	if err == nil {
		t.Fatal("expected REQUIRE to fail for a missing filename")
	}
}

func TestEvaluateRequireDoesNotConsumeQueue(t *testing.T) {
	link := &model.Link{
		Name:      "build",
		Materials: map[string]model.DigestSet{"input.txt": digest("aaa")},
	}
	materialRules := []model.Rule{
		{Tag: model.RuleRequire, Filename: "input.txt"},
		{Tag: model.RuleDisallow, Pattern: "*"},
	}
	err := Evaluate(link, materialRules, nil, LinkSet{})
	if err == nil {
		t.Fatal("expected DISALLOW * to still see input.txt since REQUIRE never consumes")
	}
}

func TestEvaluateCreateOnlyAppliesToProducts(t *testing.T) {
	link := &model.Link{
		Name:      "build",
		Materials: map[string]model.DigestSet{"carried.txt": digest("aaa")},
		Products:  map[string]model.DigestSet{"new.txt": digest("ccc"), "carried.txt": digest("aaa")},
	}
	productRules := []model.Rule{
		{Tag: model.RuleCreate, Pattern: "*"},
		{Tag: model.RuleAllow, Pattern: "carried.txt"},
		{Tag: model.RuleDisallow, Pattern: "*"},
	}
	if err := Evaluate(link, nil, productRules, LinkSet{}); err != nil {
		t.Fatalf("expected CREATE to consume new.txt and ALLOW the carried file: %v", err)
	}
}

func TestEvaluateCreateIgnoredOnMaterialsSide(t *testing.T) {
	link := &model.Link{
		Name:      "build",
		Materials: map[string]model.DigestSet{"input.txt": digest("aaa")},
	}
	materialRules := []model.Rule{
		{Tag: model.RuleCreate, Pattern: "*"},
		{Tag: model.RuleDisallow, Pattern: "*"},
	}
	err := Evaluate(link, materialRules, nil, LinkSet{})
	if err == nil {
		t.Fatal("expected CREATE to be a no-op on the materials side, leaving input.txt for DISALLOW to catch")
	}
}

func TestEvaluateDeleteOnlyAppliesToMaterials(t *testing.T) {
	link := &model.Link{
		Name:      "build",
		Materials: map[string]model.DigestSet{"scratch.txt": digest("aaa"), "carried.txt": digest("bbb")},
		Products:  map[string]model.DigestSet{"carried.txt": digest("bbb")},
	}
	materialRules := []model.Rule{
		{Tag: model.RuleDelete, Pattern: "*"},
		{Tag: model.RuleAllow, Pattern: "carried.txt"},
		{Tag: model.RuleDisallow, Pattern: "*"},
	}
	if err := Evaluate(link, materialRules, nil, LinkSet{}); err != nil {
		t.Fatalf("expected DELETE to consume scratch.txt: %v", err)
	}
}

func TestEvaluateModifyConsumesChangedDigestAcrossSides(t *testing.T) {
	link := &model.Link{
		Name:      "build",
		Materials: map[string]model.DigestSet{"file.txt": digest("before")},
		Products:  map[string]model.DigestSet{"file.txt": digest("after")},
	}
	materialRules := []model.Rule{{Tag: model.RuleModify, Pattern: "*"}}
	productRules := []model.Rule{{Tag: model.RuleModify, Pattern: "*"}}
	if err := Evaluate(link, materialRules, productRules, LinkSet{}); err != nil {
		t.Fatalf("expected MODIFY to consume a changed file on both sides: %v", err)
	}
}

func TestEvaluateModifyDoesNotConsumeUnchangedDigest(t *testing.T) {
	link := &model.Link{
		Name:      "build",
		Materials: map[string]model.DigestSet{"file.txt": digest("same")},
		Products:  map[string]model.DigestSet{"file.txt": digest("same")},
	}
	materialRules := []model.Rule{
		{Tag: model.RuleModify, Pattern: "*"},
		{Tag: model.RuleDisallow, Pattern: "*"},
	}
	err := Evaluate(link, materialRules, nil, LinkSet{})
	if err == nil {
		t.Fatal("expected MODIFY to leave an unchanged file for DISALLOW to catch")
	}
}

func TestEvaluateMatchConsumesWhenTargetLinkHasEqualDigest(t *testing.T) {
	cloneLink := &model.Link{
		Name:     "clone",
		Products: map[string]model.DigestSet{"foo.py": digest("shared")},
	}
	link := &model.Link{
		Name:      "package",
		Materials: map[string]model.DigestSet{"foo.py": digest("shared")},
	}
	materialRules := []model.Rule{
		{Tag: model.RuleMatch, Pattern: "foo.py", Side: model.SideProducts, FromStep: "clone"},
		{Tag: model.RuleDisallow, Pattern: "*"},
	}
	links := LinkSet{"clone": cloneLink}
	if err := Evaluate(link, materialRules, nil, links); err != nil {
		t.Fatalf("expected MATCH to consume foo.py: %v", err)
	}
}

func TestEvaluateMatchLeavesEntryWhenDigestDiffers(t *testing.T) {
	cloneLink := &model.Link{
		Name:     "clone",
		Products: map[string]model.DigestSet{"foo.py": digest("tampered")},
	}
	link := &model.Link{
		Name:      "package",
		Materials: map[string]model.DigestSet{"foo.py": digest("original")},
	}
	materialRules := []model.Rule{
		{Tag: model.RuleMatch, Pattern: "foo.py", Side: model.SideProducts, FromStep: "clone"},
		{Tag: model.RuleDisallow, Pattern: "*"},
	}
	links := LinkSet{"clone": cloneLink}
	err := Evaluate(link, materialRules, nil, links)
	if err == nil {
		t.Fatal("expected MATCH to leave foo.py unconsumed when digests differ, failing at DISALLOW")
	}
}

func TestEvaluateMatchFailsWhenFromStepUnresolved(t *testing.T) {
	link := &model.Link{
		Name:      "package",
		Materials: map[string]model.DigestSet{"foo.py": digest("shared")},
	}
	materialRules := []model.Rule{
		{Tag: model.RuleMatch, Pattern: "foo.py", Side: model.SideProducts, FromStep: "missing-step"},
	}
	err := Evaluate(link, materialRules, nil, LinkSet{})
	if err == nil {
		t.Fatal("expected failure when the referenced step has no verified link")
	}
}

func TestEvaluateMatchWithPrefixes(t *testing.T) {
	cloneLink := &model.Link{
		Name:     "clone",
		Products: map[string]model.DigestSet{"src/foo.py": digest("shared")},
	}
	link := &model.Link{
		Name:      "package",
		Materials: map[string]model.DigestSet{"vendor/foo.py": digest("shared")},
	}
	materialRules := []model.Rule{
		{Tag: model.RuleMatch, Pattern: "foo.py", SrcPrefix: "vendor", Side: model.SideProducts, DstPrefix: "src", FromStep: "clone"},
		{Tag: model.RuleDisallow, Pattern: "*"},
	}
	links := LinkSet{"clone": cloneLink}
	if err := Evaluate(link, materialRules, nil, links); err != nil {
		t.Fatalf("expected prefix-stripped MATCH to succeed: %v", err)
	}
}

func TestDigestSetsEqualRequiresAtLeastOneSharedAlgorithm(t *testing.T) {
	a := model.DigestSet{"sha512": "x"}
	b := model.DigestSet{"sha256": "y"}
	if digestSetsEqual(a, b) {
		t.Fatal("expected no shared algorithm to mean unequal")
	}
}

func TestDigestSetsEqualFailsOnMismatchedSharedAlgorithm(t *testing.T) {
	a := model.DigestSet{"sha256": "x", "sha512": "same"}
	b := model.DigestSet{"sha256": "y", "sha512": "same"}
	if digestSetsEqual(a, b) {
		t.Fatal("expected a mismatched shared algorithm to fail equality even though another algorithm agrees")
	}
}

func TestDigestSetsEqualPassesWhenAllSharedAlgorithmsAgree(t *testing.T) {
	a := model.DigestSet{"sha256": "same", "sha512": "only-a"}
	b := model.DigestSet{"sha256": "same", "md5": "only-b"}
	if !digestSetsEqual(a, b) {
		t.Fatal("expected agreement on the one shared algorithm to be sufficient")
	}
}
