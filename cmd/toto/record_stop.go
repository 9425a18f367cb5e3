package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ossforge/toto/core/record"
	"github.com/ossforge/toto/core/resolve"
)

type recordStopOutput struct {
	OK    bool   `json:"ok"`
	Step  string `json:"step,omitempty"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

func runRecordStop(arguments []string) int {
	flagSet := flag.NewFlagSet("record-stop", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	cfg := loadCLIConfig()

	var step, products, base, exclude, hashAlgorithms, out string
	var signerSpecs multiFlag
	var jsonOutput bool

	flagSet.StringVar(&step, "step", "", "step name")
	flagSet.Var(&signerSpecs, "signer", "keytype:path, repeatable")
	flagSet.StringVar(&products, "products", "", "comma-separated product URIs")
	flagSet.StringVar(&base, "base", cfg.Resolve.BaseDir, "base path artifact resolution is relative to")
	flagSet.StringVar(&exclude, "exclude", joinCSV(cfg.Resolve.Excludes), "comma-separated gitignore-style exclude patterns")
	flagSet.StringVar(&hashAlgorithms, "hash-algorithms", joinCSV(cfg.Resolve.HashAlgorithms), "comma-separated digest algorithms")
	flagSet.StringVar(&out, "out", ".", "output directory the in-progress link was written to")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")

	if err := flagSet.Parse(arguments); err != nil {
		return writeRecordStopOutput(jsonOutput, recordStopOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if step == "" {
		return writeRecordStopOutput(jsonOutput, recordStopOutput{OK: false, Error: "--step is required"}, exitInvalidInput)
	}

	signers, err := parseSignerSpecs(signerSpecs)
	if err != nil {
		return writeRecordStopOutput(jsonOutput, recordStopOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}

	logrus.WithField("step", step).Debug("toto record-stop: starting")

	result, err := record.Stop(record.StopOptions{
		Options: record.Options{
			StepName:  step,
			Resolve:   resolve.Options{BaseDir: base, Excludes: splitCSV(exclude), HashAlgorithms: splitCSV(hashAlgorithms)},
			Signers:   signers,
			OutputDir: out,
		},
		Products: splitCSV(products),
	})
	if err != nil {
		logrus.WithError(err).WithField("step", step).Warn("toto record-stop: failed")
		return writeRecordStopOutput(jsonOutput, recordStopOutput{OK: false, Error: err.Error()}, exitCodeForError(err, exitInvalidInput))
	}

	logrus.WithFields(logrus.Fields{"step": step, "path": result.Path}).Info("toto record-stop: wrote signed link")
	return writeRecordStopOutput(jsonOutput, recordStopOutput{OK: true, Step: step, Path: result.Path}, exitOK)
}

func writeRecordStopOutput(jsonOutput bool, output recordStopOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Printf("record-stop ok: step=%s path=%s\n", output.Step, output.Path)
		return exitCode
	}
	fmt.Printf("record-stop error: %s\n", output.Error)
	return exitCode
}
