package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ossforge/toto/core/record"
	"github.com/ossforge/toto/core/resolve"
)

type runOutput struct {
	OK       bool   `json:"ok"`
	Step     string `json:"step,omitempty"`
	Path     string `json:"path,omitempty"`
	TimedOut bool   `json:"timed_out,omitempty"`
	Error    string `json:"error,omitempty"`
}

func runRun(arguments []string) int {
	flagSet := flag.NewFlagSet("run", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	cfg := loadCLIConfig()

	var step, materials, products, dir, base, exclude, hashAlgorithms, out string
	var signerSpecs multiFlag
	var timeout time.Duration
	var capture, jsonOutput bool

	flagSet.StringVar(&step, "step", "", "step name")
	flagSet.Var(&signerSpecs, "signer", "keytype:path, repeatable")
	flagSet.StringVar(&materials, "materials", "", "comma-separated material URIs")
	flagSet.StringVar(&products, "products", "", "comma-separated product URIs")
	flagSet.StringVar(&dir, "dir", "", "working directory for the command")
	flagSet.StringVar(&base, "base", cfg.Resolve.BaseDir, "base path artifact resolution is relative to")
	flagSet.StringVar(&exclude, "exclude", joinCSV(cfg.Resolve.Excludes), "comma-separated gitignore-style exclude patterns")
	flagSet.StringVar(&hashAlgorithms, "hash-algorithms", joinCSV(cfg.Resolve.HashAlgorithms), "comma-separated digest algorithms")
	flagSet.DurationVar(&timeout, "timeout", 0, "command timeout, zero means no deadline")
	flagSet.BoolVar(&capture, "capture", false, "capture stdout/stderr into byproducts")
	flagSet.StringVar(&out, "out", ".", "output directory for the signed link")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")

	if err := flagSet.Parse(arguments); err != nil {
		return writeRunOutput(jsonOutput, runOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	argv := flagSet.Args()
	if step == "" || len(argv) == 0 {
		return writeRunOutput(jsonOutput, runOutput{OK: false, Error: "--step and a command after -- are required"}, exitInvalidInput)
	}

	signers, err := parseSignerSpecs(signerSpecs)
	if err != nil {
		return writeRunOutput(jsonOutput, runOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}

	logrus.WithFields(logrus.Fields{"step": step, "argv": argv}).Debug("toto run: starting")

	result, err := record.Run(context.Background(), record.RunOptions{
		Options: record.Options{
			StepName:  step,
			Resolve:   resolve.Options{BaseDir: base, Excludes: splitCSV(exclude), HashAlgorithms: splitCSV(hashAlgorithms)},
			Signers:   signers,
			OutputDir: out,
		},
		Argv:      argv,
		Materials: splitCSV(materials),
		Products:  splitCSV(products),
		Dir:       dir,
		Capture:   capture,
		Timeout:   timeout,
	})
	if err != nil {
		logrus.WithError(err).WithField("step", step).Warn("toto run: failed")
		return writeRunOutput(jsonOutput, runOutput{OK: false, TimedOut: result.TimedOut, Error: err.Error()}, exitCodeForError(err, exitInvalidInput))
	}

	logrus.WithFields(logrus.Fields{"step": step, "path": result.Path}).Info("toto run: wrote signed link")
	return writeRunOutput(jsonOutput, runOutput{OK: true, Step: step, Path: result.Path, TimedOut: result.TimedOut}, exitOK)
}

func writeRunOutput(jsonOutput bool, output runOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Printf("run ok: step=%s path=%s\n", output.Step, output.Path)
		return exitCode
	}
	fmt.Printf("run error: %s\n", output.Error)
	return exitCode
}

// multiFlag accumulates repeated -flag values into a slice.
type multiFlag []string

func (m *multiFlag) String() string { return "" }
func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}
