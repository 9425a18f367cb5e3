package record

import (
	"os"
	"path/filepath"

	toterrors "github.com/ossforge/toto/core/errors"
	"github.com/ossforge/toto/core/keys"
	"github.com/ossforge/toto/core/model"
)

// StartOptions configures record-start: hash materials now, defer
// command execution and product hashing to a later record-stop call.
type StartOptions struct {
	Options
	Materials []string
}

// StartResult reports where the in-progress link landed.
type StartResult struct {
	Path string
}

// Start hashes materials and writes an unsigned in-progress link to
// <outputDir>/<step>.<prefix>.start.link. It carries no signatures
// because nothing about the step is final yet; record-stop reads it
// back, adds products, and signs the combined result.
func Start(opts StartOptions) (StartResult, error) {
	if opts.StepName == "" {
		return StartResult{}, toterrors.New(toterrors.KindRuntime, "missing_step_name", "", toterrors.Context{}, "record: step name is required")
	}

	materials, err := hashSet(opts.Materials, opts.Resolve)
	if err != nil {
		return StartResult{}, err
	}

	link := &model.Link{
		Type:      model.PayloadTypeLink,
		Name:      opts.StepName,
		Materials: materials,
	}

	filename, err := startFilename(opts.StepName, opts.Signers)
	if err != nil {
		return StartResult{}, err
	}
	envelope, err := model.NewClassicEnvelope(link)
	if err != nil {
		return StartResult{}, toterrors.Wrap(err, toterrors.KindRuntime, "build_envelope", "", toterrors.Context{Step: opts.StepName})
	}
	path, err := writeEnvelope(envelope, opts.OutputDir, filename)
	if err != nil {
		return StartResult{}, err
	}
	return StartResult{Path: path}, nil
}

// StopOptions configures record-stop: hash products, merge with the
// materials an earlier Start call recorded, sign, write the final link.
type StopOptions struct {
	Options
	Products []string
}

// StopResult is what record-stop reports back.
type StopResult struct {
	Link     *model.Link
	Envelope *model.Envelope
	Path     string
}

// Stop reads the in-progress link a matching Start call wrote, hashes
// products, merges, signs, and writes the final link. A missing
// in-progress file is not an error — stop proceeds with empty
// materials, so a stop without a matching start still produces a
// signed link.
func Stop(opts StopOptions) (StopResult, error) {
	if opts.StepName == "" {
		return StopResult{}, toterrors.New(toterrors.KindRuntime, "missing_step_name", "", toterrors.Context{}, "record: step name is required")
	}

	materials, err := readStartMaterials(opts.StepName, opts.Signers, opts.OutputDir)
	if err != nil {
		return StopResult{}, err
	}

	products, err := hashSet(opts.Products, opts.Resolve)
	if err != nil {
		return StopResult{}, err
	}

	link := &model.Link{
		Type:      model.PayloadTypeLink,
		Name:      opts.StepName,
		Materials: materials,
		Products:  products,
	}
	if err := link.Validate(); err != nil {
		return StopResult{}, toterrors.Wrap(err, toterrors.KindSchema, "invalid_link", "", toterrors.Context{Step: opts.StepName})
	}

	filename, err := linkFilename(opts.StepName, opts.Signers)
	if err != nil {
		return StopResult{}, err
	}
	path, envelope, err := signAndWrite(link, opts.Signers, opts.OutputDir, filename)
	if err != nil {
		return StopResult{}, err
	}

	startPath := filepath.Join(opts.OutputDir, mustStartFilename(opts.StepName, opts.Signers))
	_ = os.Remove(startPath)

	return StopResult{Link: link, Envelope: envelope, Path: path}, nil
}

func mustStartFilename(stepName string, signers []keys.Signer) string {
	// Never called with an error path reachable before linkFilename
	// already validated signers in the same call.
	name, _ := startFilename(stepName, signers)
	return name
}

func readStartMaterials(stepName string, signers []keys.Signer, outputDir string) (map[string]model.DigestSet, error) {
	filename, err := startFilename(stepName, signers)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(outputDir, filename)
	// #nosec G304 -- path is derived from the recording engine's own naming convention.
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]model.DigestSet{}, nil
		}
		return nil, toterrors.Wrap(err, toterrors.KindIO, "read_start_link",
			"check output directory permissions", toterrors.Context{Step: stepName, Path: path})
	}

	link, _, err := model.DecodeLink(raw)
	if err != nil {
		return nil, toterrors.Wrap(err, toterrors.KindSchema, "decode_start_link", "", toterrors.Context{Step: stepName, Path: path})
	}
	if link.Materials == nil {
		return map[string]model.DigestSet{}, nil
	}
	return link.Materials, nil
}
