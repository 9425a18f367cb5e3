// Package verify implements the top-level verification pipeline: layout
// signature and threshold checks, expiry, parameter substitution, link
// loading with agreement-cluster tie-breaking, rule evaluation, inspection
// execution, and sublayout recursion, per spec §4.7's fixed sequence.
package verify

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	toterrors "github.com/ossforge/toto/core/errors"
	"github.com/ossforge/toto/core/keys"
	"github.com/ossforge/toto/core/model"
	"github.com/ossforge/toto/core/resolve"
	"github.com/ossforge/toto/core/rules"
	"github.com/ossforge/toto/core/runner"
)

// Options configures one top-level verification run.
type Options struct {
	LayoutData         []byte
	OwnerKeys          map[string]keys.PublicKey
	MinOwnerSignatures int
	EvidenceDir        string
	Substitutions      map[string]string
	Resolve            resolve.Options
	Runner             runner.Runner
	// Now pins the clock the expiry check uses; a zero value means
	// time.Now(). Pin this in tests for determinism.
	Now time.Time
}

// Status is the pass/fail verdict a completed verification reaches.
// Verify never returns a Result with a failing Status — any fatal
// condition surfaces as an error instead, per spec §4.7's "any step's
// failure is terminal."
type Status string

const (
	StatusPass Status = "PASS"
)

// StepReport is the per-step diagnostic summary spec §6's verify
// collaborator contract calls "human-readable diagnostics."
type StepReport struct {
	Name     string
	Signers  []string
	Warnings []string
}

// Result is what a passing verification reports back.
type Result struct {
	Status   Status
	Steps    []StepReport
	Warnings []string
	// Links is every step's and inspection's representative link,
	// keyed by name, so a caller (or a recursive sublayout check) can
	// inspect the evidence a verification accepted.
	Links rules.LinkSet
}

// Verify runs the full pipeline. Any fatal condition — signature failure,
// expiry, malformed substitution, threshold shortfall, rule violation,
// inspection failure — returns a classified error (see core/errors) rather
// than a failing Result.
func Verify(ctx context.Context, opts Options) (*Result, error) {
	layout, envelope, err := model.DecodeLayout(opts.LayoutData)
	if err != nil {
		return nil, err
	}

	signBytes, err := envelope.SignBytes()
	if err != nil {
		return nil, toterrors.Wrap(err, toterrors.KindCrypto, "canonicalize_layout", "", toterrors.Context{})
	}
	valid := validPrimaries(signBytes, envelope.Signatures, opts.OwnerKeys)
	minSignatures := opts.MinOwnerSignatures
	if minSignatures < 1 {
		minSignatures = 1
	}
	if len(valid) < minSignatures {
		return nil, toterrors.New(toterrors.KindCrypto, "layout_signature_insufficient",
			"have enough owners re-sign the layout, or check the owner key set passed to verification",
			toterrors.Context{}, fmt.Sprintf("verify: layout has %d valid owner signature(s), need %d", len(valid), minSignatures))
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	if layout.Expired(now) {
		return nil, toterrors.New(toterrors.KindExpired, "layout_expired", "request a renewed layout from the owner",
			toterrors.Context{}, fmt.Sprintf("verify: layout expired at %s", layout.Expires))
	}

	substituted, err := substituteLayout(layout, opts.Substitutions)
	if err != nil {
		return nil, toterrors.Wrap(err, toterrors.KindSchema, "substitution_failed", "supply every {NAME} token the layout references", toterrors.Context{})
	}

	links := rules.LinkSet{}
	var reports []StepReport
	var warnings []string

	for _, step := range substituted.Steps {
		link, signers, stepWarnings, err := verifyStep(ctx, substituted, step, opts)
		if err != nil {
			logrus.WithError(err).WithField("step", step.Name).Debug("verify: step failed")
			return nil, err
		}
		links[step.Name] = link
		reports = append(reports, StepReport{Name: step.Name, Signers: sortedIDs(signers), Warnings: stepWarnings})
		warnings = append(warnings, stepWarnings...)
		logrus.WithFields(logrus.Fields{"step": step.Name, "signers": sortedIDs(signers)}).Debug("verify: step accepted")
		for _, warning := range stepWarnings {
			logrus.WithField("step", step.Name).Warn(warning)
		}
	}

	for _, step := range substituted.Steps {
		if err := rules.Evaluate(links[step.Name], step.ExpectedMaterials, step.ExpectedProducts, links); err != nil {
			return nil, err
		}
	}

	for _, inspection := range substituted.Inspect {
		link, err := runInspection(ctx, inspection, opts)
		if err != nil {
			return nil, err
		}
		links[inspection.Name] = link
		if err := rules.Evaluate(link, inspection.ExpectedMaterials, inspection.ExpectedProducts, links); err != nil {
			return nil, err
		}
	}

	logrus.WithField("steps", len(reports)).Info("verify: passed")
	return &Result{Status: StatusPass, Steps: reports, Warnings: warnings, Links: links}, nil
}

// verifyStep implements spec §4.7 steps 4 and 5 for one step, recursing
// into sublayout verification (step 8) when the winning candidate's
// payload turns out to be a Layout rather than a Link.
func verifyStep(ctx context.Context, layout *model.Layout, step model.Step, opts Options) (*model.Link, map[string]bool, []string, error) {
	owners := stepOwnerKeys(layout, step.PubKeys)

	files, err := findCandidateFiles(opts.EvidenceDir, step.Name)
	if err != nil {
		return nil, nil, nil, toterrors.Wrap(err, toterrors.KindIO, "list_candidate_links", "", toterrors.Context{Step: step.Name})
	}

	var warnings []string
	clusters := map[string]*agreementCluster{}
	var bestSublayout *candidateLink

	for _, f := range files {
		cand, err := loadCandidate(f)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("step %q: discarding unreadable candidate %s: %v", step.Name, f, err))
			continue
		}
		signBytes, err := cand.envelope.SignBytes()
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("step %q: discarding candidate %s: %v", step.Name, f, err))
			continue
		}
		signed := validPrimaries(signBytes, cand.envelope.Signatures, owners)
		if len(signed) == 0 {
			continue // unauthorized or invalid signature: discard, do not fail
		}

		if cand.sublayout != nil {
			cand.signedBy = signed
			if bestSublayout == nil || len(signed) > len(bestSublayout.signedBy) {
				bestSublayout = cand
			}
			continue
		}

		key, err := clusterKey(cand.link)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("step %q: discarding candidate %s: %v", step.Name, f, err))
			continue
		}
		c, ok := clusters[key]
		if !ok {
			c = &agreementCluster{link: cand.link, signers: map[string]bool{}}
			clusters[key] = c
		}
		for id := range signed {
			c.signers[id] = true
		}
	}

	if bestSublayout != nil && len(bestSublayout.signedBy) >= step.Threshold {
		link, err := verifySublayoutStep(ctx, layout, step, bestSublayout, opts)
		if err != nil {
			return nil, nil, nil, err
		}
		return link, bestSublayout.signedBy, warnings, nil
	}

	link, signers, ok := selectRepresentative(clusters, step.Threshold)
	if !ok {
		return nil, nil, nil, toterrors.New(toterrors.KindThreshold, "threshold_not_met",
			"collect more signed, agreeing links for this step, or lower its threshold",
			toterrors.Context{Step: step.Name},
			fmt.Sprintf("verify: step %q has fewer than %d agreeing authorized links", step.Name, step.Threshold))
	}

	if len(step.ExpectedCommand) > 0 && !stringSlicesEqual(link.Command, step.ExpectedCommand) {
		warnings = append(warnings, fmt.Sprintf("step %q: command %v does not match expected_command %v", step.Name, link.Command, step.ExpectedCommand))
	}

	return link, signers, warnings, nil
}

// verifySublayoutStep recurses into the sublayout's own evidence directory
// and synthesizes a summary link from it: materials from its first step's
// representative link, products from its last step's (or, if present, last
// inspection's) representative link — spec §4.7 step 8's "sublayout
// products are substituted into the parent verification as the parent
// link's products."
func verifySublayoutStep(ctx context.Context, layout *model.Layout, step model.Step, cand *candidateLink, opts Options) (*model.Link, error) {
	sub := cand.sublayout
	if len(sub.Steps) == 0 {
		return nil, toterrors.New(toterrors.KindSchema, "empty_sublayout", "", toterrors.Context{Step: step.Name}, "verify: sublayout has no steps")
	}

	prefix := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(cand.path), step.Name+"."), ".link")
	subDir := filepath.Join(opts.EvidenceDir, step.Name+"."+prefix)

	logrus.WithFields(logrus.Fields{"step": step.Name, "sub_dir": subDir}).Debug("verify: recursing into sublayout")

	rawSub, err := cand.envelope.MarshalJSON()
	if err != nil {
		return nil, toterrors.Wrap(err, toterrors.KindSchema, "marshal_sublayout", "", toterrors.Context{Step: step.Name})
	}

	subOpts := opts
	subOpts.LayoutData = rawSub
	subOpts.OwnerKeys = stepOwnerKeys(layout, step.PubKeys)
	subOpts.MinOwnerSignatures = step.Threshold
	subOpts.EvidenceDir = subDir

	subResult, err := Verify(ctx, subOpts)
	if err != nil {
		return nil, err
	}

	lastName := sub.Steps[len(sub.Steps)-1].Name
	if len(sub.Inspect) > 0 {
		lastName = sub.Inspect[len(sub.Inspect)-1].Name
	}
	firstStep := sub.Steps[0].Name

	return &model.Link{
		Type:      model.PayloadTypeLink,
		Name:      step.Name,
		Materials: subResult.Links[firstStep].Materials,
		Products:  subResult.Links[lastName].Products,
	}, nil
}

// runInspection executes one verifier-side Inspection: hash everything
// reachable in the evidence directory, run its command (if any), hash
// again, and synthesize an in-memory Link spec §4.7 step 7 describes.
func runInspection(ctx context.Context, inspection model.Inspection, opts Options) (*model.Link, error) {
	snapshotOpts := opts.Resolve
	snapshotOpts.BaseDir = opts.EvidenceDir

	materials, err := resolve.Resolve(".", snapshotOpts)
	if err != nil {
		return nil, toterrors.Wrap(err, toterrors.KindIO, "inspection_snapshot_materials", "", toterrors.Context{Step: inspection.Name})
	}

	var runResult runner.RunResult
	if len(inspection.Run) > 0 {
		r := opts.Runner
		if r == nil {
			r = runner.ExecRunner{}
		}
		runResult, err = r.Run(ctx, runner.RunOptions{Argv: inspection.Run, Dir: opts.EvidenceDir})
		if err != nil {
			return nil, toterrors.Wrap(err, toterrors.KindRuntime, "inspection_command_failed",
				"check the inspection's run command exists and is executable", toterrors.Context{Step: inspection.Name})
		}
	}

	products, err := resolve.Resolve(".", snapshotOpts)
	if err != nil {
		return nil, toterrors.Wrap(err, toterrors.KindIO, "inspection_snapshot_products", "", toterrors.Context{Step: inspection.Name})
	}

	returnValue := runResult.ExitCode
	logrus.WithFields(logrus.Fields{"inspection": inspection.Name, "return_value": returnValue}).Debug("verify: inspection ran")
	return &model.Link{
		Type:       model.PayloadTypeLink,
		Name:       inspection.Name,
		Command:    inspection.Run,
		Materials:  materials,
		Products:   products,
		Byproducts: model.Byproducts{ReturnValue: &returnValue, Timeout: runResult.TimedOut},
	}, nil
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedIDs(set map[string]bool) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
