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

type mockOutput struct {
	OK    bool   `json:"ok"`
	Step  string `json:"step,omitempty"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

func runMock(arguments []string) int {
	flagSet := flag.NewFlagSet("mock", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	cfg := loadCLIConfig()

	var step, materials, products, dir, base, exclude, hashAlgorithms, out string
	var timeout time.Duration
	var capture, jsonOutput bool

	flagSet.StringVar(&step, "step", "", "step name")
	flagSet.StringVar(&materials, "materials", "", "comma-separated material URIs")
	flagSet.StringVar(&products, "products", "", "comma-separated product URIs")
	flagSet.StringVar(&dir, "dir", "", "working directory for the command")
	flagSet.StringVar(&base, "base", cfg.Resolve.BaseDir, "base path artifact resolution is relative to")
	flagSet.StringVar(&exclude, "exclude", joinCSV(cfg.Resolve.Excludes), "comma-separated gitignore-style exclude patterns")
	flagSet.StringVar(&hashAlgorithms, "hash-algorithms", joinCSV(cfg.Resolve.HashAlgorithms), "comma-separated digest algorithms")
	flagSet.DurationVar(&timeout, "timeout", 0, "command timeout, zero means no deadline")
	flagSet.BoolVar(&capture, "capture", false, "capture stdout/stderr into byproducts")
	flagSet.StringVar(&out, "out", ".", "output directory for the unsigned link")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")

	if err := flagSet.Parse(arguments); err != nil {
		return writeMockOutput(jsonOutput, mockOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	argv := flagSet.Args()
	if step == "" || len(argv) == 0 {
		return writeMockOutput(jsonOutput, mockOutput{OK: false, Error: "--step and a command after -- are required"}, exitInvalidInput)
	}

	logrus.WithField("step", step).Debug("toto mock: starting")

	result, err := record.Mock(context.Background(), record.MockOptions{
		StepName:  step,
		Resolve:   resolve.Options{BaseDir: base, Excludes: splitCSV(exclude), HashAlgorithms: splitCSV(hashAlgorithms)},
		Argv:      argv,
		Materials: splitCSV(materials),
		Products:  splitCSV(products),
		Dir:       dir,
		Capture:   capture,
		Timeout:   timeout,
		OutputDir: out,
	})
	if err != nil {
		logrus.WithError(err).WithField("step", step).Warn("toto mock: failed")
		return writeMockOutput(jsonOutput, mockOutput{OK: false, Error: err.Error()}, exitCodeForError(err, exitInvalidInput))
	}

	logrus.WithFields(logrus.Fields{"step": step, "path": result.Path}).Info("toto mock: wrote unsigned link")
	return writeMockOutput(jsonOutput, mockOutput{OK: true, Step: step, Path: result.Path}, exitOK)
}

func writeMockOutput(jsonOutput bool, output mockOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Printf("mock ok: step=%s path=%s\n", output.Step, output.Path)
		return exitCode
	}
	fmt.Printf("mock error: %s\n", output.Error)
	return exitCode
}
