package rules

import (
	"fmt"

	toterrors "github.com/ossforge/toto/core/errors"
	"github.com/ossforge/toto/core/model"
)

// LinkSet maps a step name to the representative link chosen for it during
// verification, so MATCH rules with a FROM clause can resolve their target.
type LinkSet map[string]*model.Link

// entry is one (path, digest-set) pair drawn from a link's materials or
// products.
type entry struct {
	path   string
	digest model.DigestSet
}

// queue is the mutable working set a rule list consumes from, in path order
// so MATCH's "left-to-right over queue entries" tie-break rule is deterministic.
type queue []entry

func newQueue(artifacts map[string]model.DigestSet) queue {
	paths := make([]string, 0, len(artifacts))
	for path := range artifacts {
		paths = append(paths, path)
	}
	sortStrings(paths)
	q := make(queue, 0, len(paths))
	for _, path := range paths {
		q = append(q, entry{path: path, digest: artifacts[path]})
	}
	return q
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// remove drops the entry at path, reporting whether it was present.
func (q *queue) remove(path string) bool {
	for i, e := range *q {
		if e.path == path {
			*q = append((*q)[:i], (*q)[i+1:]...)
			return true
		}
	}
	return false
}

func (q queue) matching(pattern, prefix string) []entry {
	var out []entry
	for _, e := range q {
		rel, ok := stripPrefix(e.path, prefix)
		if !ok {
			continue
		}
		if matchGlob(pattern, normalizePath(rel)) {
			out = append(out, e)
		}
	}
	return out
}

func stripPrefix(path, prefix string) (string, bool) {
	if prefix == "" {
		return path, true
	}
	norm := normalizePath(path)
	p := normalizePath(prefix)
	if len(p) > 0 && p[len(p)-1] != '/' {
		p += "/"
	}
	if len(norm) < len(p) || norm[:len(p)] != p {
		return "", false
	}
	return norm[len(p):], true
}

// digestSetsEqual requires at least one hash algorithm shared between a and
// b, and agreement on every algorithm the two sets share.
func digestSetsEqual(a, b model.DigestSet) bool {
	shared := 0
	for alg, digest := range a {
		other, ok := b[alg]
		if !ok {
			continue
		}
		shared++
		if other != digest {
			return false
		}
	}
	return shared > 0
}

// Evaluate applies materialRules against link.Materials and productRules
// against link.Products, following spec's queue-and-full-set algorithm.
// links supplies the representative link for every step a MATCH rule's FROM
// clause may reference; it must already contain every step the rules
// reference, since cross-step MATCH evaluation never loads a link lazily.
func Evaluate(link *model.Link, materialRules, productRules []model.Rule, links LinkSet) error {
	if err := evaluateSide(link.Name, model.SideMaterials, materialRules,
		link.Materials, link.Products, links); err != nil {
		return err
	}
	if err := evaluateSide(link.Name, model.SideProducts, productRules,
		link.Products, link.Materials, links); err != nil {
		return err
	}
	return nil
}

// evaluateSide runs ruleList against fullSet (materials or products of
// stepName, selected by side), consuming from a queue seeded with the same
// contents. otherFullSet is the opposite side's full set, needed by
// CREATE/DELETE/MODIFY which compare across sides.
func evaluateSide(stepName string, side model.Side, ruleList []model.Rule,
	fullSet, otherFullSet map[string]model.DigestSet, links LinkSet) error {

	q := newQueue(fullSet)

	for i, rule := range ruleList {
		ctx := toterrors.Context{Step: stepName, Rule: i}
		switch rule.Tag {
		case model.RuleMatch:
			if err := applyMatch(rule, &q, side, links, ctx); err != nil {
				return err
			}

		case model.RuleAllow:
			for _, e := range q.matching(rule.Pattern, "") {
				q.remove(e.path)
			}

		case model.RuleDisallow:
			if leftover := q.matching(rule.Pattern, ""); len(leftover) > 0 {
				return toterrors.New(toterrors.KindRule, "disallowed_artifact",
					"add an ALLOW, CREATE, DELETE, or MODIFY rule earlier to authorize this path",
					ctx, fmt.Sprintf("rule: %s disallows remaining artifact %q", rule.Pattern, leftover[0].path))
			}

		case model.RuleRequire:
			if _, ok := fullSet[rule.Filename]; !ok {
				return toterrors.New(toterrors.KindRule, "required_artifact_missing",
					"", ctx, fmt.Sprintf("rule: REQUIRE %s not present", rule.Filename))
			}

		case model.RuleCreate:
			if side != model.SideProducts {
				continue
			}
			for _, e := range q.matching(rule.Pattern, "") {
				if _, inMaterials := otherFullSet[e.path]; !inMaterials {
					q.remove(e.path)
				}
			}

		case model.RuleDelete:
			if side != model.SideMaterials {
				continue
			}
			for _, e := range q.matching(rule.Pattern, "") {
				if _, inProducts := otherFullSet[e.path]; !inProducts {
					q.remove(e.path)
				}
			}

		case model.RuleModify:
			for _, e := range q.matching(rule.Pattern, "") {
				other, ok := otherFullSet[e.path]
				if ok && !digestSetsEqual(e.digest, other) {
					q.remove(e.path)
				}
			}

		default:
			return toterrors.New(toterrors.KindRule, "unknown_rule_tag", "", ctx,
				fmt.Sprintf("rule: unrecognized tag %q", rule.Tag))
		}
	}

	return nil
}

// applyMatch consumes queue entries satisfied by a cross-step MATCH rule.
// An entry whose relative path has no satisfying counterpart in the target
// link is left in the queue, so a later DISALLOW can flag it.
func applyMatch(rule model.Rule, q *queue, side model.Side, links LinkSet, ctx toterrors.Context) error {
	target, ok := links[rule.FromStep]
	if !ok || target == nil {
		return toterrors.New(toterrors.KindRule, "match_step_unresolved",
			"verify the referenced step's link was loaded and signature-checked before rule evaluation",
			ctx, fmt.Sprintf("rule: MATCH FROM %s has no verified link", rule.FromStep))
	}

	targetArtifacts := target.Materials
	if rule.Side == model.SideProducts {
		targetArtifacts = target.Products
	}

	for _, e := range q.matching(rule.Pattern, rule.SrcPrefix) {
		rel, _ := stripPrefix(e.path, rule.SrcPrefix)
		rel = normalizePath(rel)

		if satisfiesMatch(rel, e.digest, rule.DstPrefix, targetArtifacts) {
			q.remove(e.path)
		}
	}
	return nil
}

func satisfiesMatch(rel string, digest model.DigestSet, dstPrefix string, candidates map[string]model.DigestSet) bool {
	for path, candidateDigest := range candidates {
		candidateRel, ok := stripPrefix(path, dstPrefix)
		if !ok {
			continue
		}
		if normalizePath(candidateRel) != rel {
			continue
		}
		if digestSetsEqual(digest, candidateDigest) {
			return true
		}
	}
	return false
}
