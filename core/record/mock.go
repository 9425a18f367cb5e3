package record

import (
	"context"
	"time"

	toterrors "github.com/ossforge/toto/core/errors"
	"github.com/ossforge/toto/core/model"
	"github.com/ossforge/toto/core/resolve"
	"github.com/ossforge/toto/core/runner"
)

// MockOptions configures mock mode: the same wrap-and-run shape as
// RunOptions, minus any requirement for signers — mock is a local dry
// run, so the resulting link is written unsigned.
type MockOptions struct {
	StepName  string
	Resolve   resolve.Options
	Argv      []string
	Materials []string
	Products  []string
	Dir       string
	Capture   bool
	Timeout   time.Duration
	OutputDir string
	Runner    runner.Runner
}

// MockResult is what mock mode reports back.
type MockResult struct {
	Link *model.Link
	Path string
}

// Mock runs opts.Argv the same way wrap-and-run does — materials
// hashed first, command executed, products hashed after — but never
// invokes a signer and writes the resulting link unsigned to
// <outputDir>/<step>.mock.link, so it never collides with a real
// functionary's signed output.
func Mock(ctx context.Context, opts MockOptions) (MockResult, error) {
	if opts.StepName == "" {
		return MockResult{}, toterrors.New(toterrors.KindRuntime, "missing_step_name", "", toterrors.Context{}, "record: step name is required")
	}
	if len(opts.Argv) == 0 {
		return MockResult{}, toterrors.New(toterrors.KindRuntime, "missing_argv", "", toterrors.Context{Step: opts.StepName}, "record: argv must not be empty")
	}

	materials, err := hashSet(opts.Materials, opts.Resolve)
	if err != nil {
		return MockResult{}, err
	}

	r := opts.Runner
	if r == nil {
		r = runner.ExecRunner{}
	}
	runResult, err := r.Run(ctx, runner.RunOptions{
		Argv:    opts.Argv,
		Dir:     opts.Dir,
		Timeout: opts.Timeout,
	})
	if err != nil {
		return MockResult{}, toterrors.Wrap(err, toterrors.KindRuntime, "command_start_failed",
			"check that the command exists and is executable", toterrors.Context{Step: opts.StepName})
	}

	products, err := hashSet(opts.Products, opts.Resolve)
	if err != nil {
		return MockResult{}, err
	}

	returnValue := runResult.ExitCode
	byproducts := model.Byproducts{ReturnValue: &returnValue, Timeout: runResult.TimedOut}
	if opts.Capture {
		byproducts.Stdout = string(runResult.Stdout)
		byproducts.Stderr = string(runResult.Stderr)
	}

	link := &model.Link{
		Type:       model.PayloadTypeLink,
		Name:       opts.StepName,
		Command:    opts.Argv,
		Materials:  materials,
		Products:   products,
		Byproducts: byproducts,
	}
	if err := link.Validate(); err != nil {
		return MockResult{}, toterrors.Wrap(err, toterrors.KindSchema, "invalid_link", "", toterrors.Context{Step: opts.StepName})
	}

	envelope, err := model.NewClassicEnvelope(link)
	if err != nil {
		return MockResult{}, toterrors.Wrap(err, toterrors.KindRuntime, "build_envelope", "", toterrors.Context{Step: opts.StepName})
	}
	path, err := writeEnvelope(envelope, opts.OutputDir, mockFilename(opts.StepName))
	if err != nil {
		return MockResult{}, err
	}

	return MockResult{Link: link, Path: path}, nil
}
