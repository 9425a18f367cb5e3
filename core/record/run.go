package record

import (
	"context"
	"time"

	toterrors "github.com/ossforge/toto/core/errors"
	"github.com/ossforge/toto/core/model"
	"github.com/ossforge/toto/core/runner"
)

// RunOptions configures wrap-and-run: hash materials, execute argv,
// hash products, sign, write the final link.
type RunOptions struct {
	Options
	Argv                  []string
	Materials             []string
	Products              []string
	Dir                   string
	Capture               bool
	Timeout               time.Duration // zero means no deadline beyond ctx
	SuppressLinkOnTimeout bool
	Runner                runner.Runner
}

// RunResult is what wrap-and-run reports back.
type RunResult struct {
	Link     *model.Link
	Envelope *model.Envelope
	Path     string
	TimedOut bool
}

// Run executes wrap-and-run mode. Material hashing strictly precedes
// command execution; product hashing strictly follows it — the two
// hashSet calls below are sequenced around the single r.Run call, not
// run concurrently with it.
func Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	if opts.StepName == "" {
		return RunResult{}, toterrors.New(toterrors.KindRuntime, "missing_step_name", "", toterrors.Context{}, "record: step name is required")
	}
	if len(opts.Argv) == 0 {
		return RunResult{}, toterrors.New(toterrors.KindRuntime, "missing_argv", "", toterrors.Context{Step: opts.StepName}, "record: argv must not be empty")
	}

	materials, err := hashSet(opts.Materials, opts.Resolve)
	if err != nil {
		return RunResult{}, err
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
		return RunResult{}, toterrors.Wrap(err, toterrors.KindRuntime, "command_start_failed",
			"check that the command exists and is executable", toterrors.Context{Step: opts.StepName})
	}

	products, err := hashSet(opts.Products, opts.Resolve)
	if err != nil {
		return RunResult{}, err
	}

	if runResult.TimedOut && opts.SuppressLinkOnTimeout {
		return RunResult{TimedOut: true}, toterrors.New(toterrors.KindTimeout, "command_timeout",
			"increase the step timeout or investigate the hung command", toterrors.Context{Step: opts.StepName},
			"record: command timed out")
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
		return RunResult{}, toterrors.Wrap(err, toterrors.KindSchema, "invalid_link", "", toterrors.Context{Step: opts.StepName})
	}

	filename, err := linkFilename(opts.StepName, opts.Signers)
	if err != nil {
		return RunResult{}, err
	}
	path, envelope, err := signAndWrite(link, opts.Signers, opts.OutputDir, filename)
	if err != nil {
		return RunResult{}, err
	}

	return RunResult{Link: link, Envelope: envelope, Path: path, TimedOut: runResult.TimedOut}, nil
}
