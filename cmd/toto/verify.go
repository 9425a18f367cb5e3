package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ossforge/toto/core/resolve"
	"github.com/ossforge/toto/core/verify"
)

type verifyOutput struct {
	OK       bool                `json:"ok"`
	Status   string              `json:"status,omitempty"`
	Steps    []verify.StepReport `json:"steps,omitempty"`
	Warnings []string            `json:"warnings,omitempty"`
	Error    string              `json:"error,omitempty"`
}

func runVerify(arguments []string) int {
	flagSet := flag.NewFlagSet("verify", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	cfg := loadCLIConfig()
	defaultEvidenceDir := cfg.Evidence.Dir
	if defaultEvidenceDir == "" {
		defaultEvidenceDir = "."
	}

	var layoutPath, evidenceDir, base, exclude, hashAlgorithms string
	var ownerKeyPaths, substitutions multiFlag
	var minSignatures int
	var jsonOutput bool

	flagSet.StringVar(&layoutPath, "layout", "", "path to the signed layout")
	flagSet.Var(&ownerKeyPaths, "owner-key", "path to an owner PublicKey descriptor, repeatable")
	flagSet.StringVar(&evidenceDir, "evidence", defaultEvidenceDir, "directory containing recorded link files")
	flagSet.IntVar(&minSignatures, "min-signatures", 1, "minimum valid layout owner signatures required")
	flagSet.Var(&substitutions, "set", "NAME=VALUE parameter substitution, repeatable")
	flagSet.StringVar(&base, "base", cfg.Resolve.BaseDir, "base path inspection artifact resolution is relative to")
	flagSet.StringVar(&exclude, "exclude", joinCSV(cfg.Resolve.Excludes), "comma-separated gitignore-style exclude patterns")
	flagSet.StringVar(&hashAlgorithms, "hash-algorithms", joinCSV(cfg.Resolve.HashAlgorithms), "comma-separated digest algorithms for inspection commands")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")

	if err := flagSet.Parse(arguments); err != nil {
		return writeVerifyOutput(jsonOutput, verifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if layoutPath == "" || len(ownerKeyPaths) == 0 {
		return writeVerifyOutput(jsonOutput, verifyOutput{OK: false, Error: "--layout and at least one --owner-key are required"}, exitInvalidInput)
	}

	// #nosec G304 -- path is an operator-supplied CLI flag.
	layoutData, err := os.ReadFile(layoutPath)
	if err != nil {
		return writeVerifyOutput(jsonOutput, verifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}

	owners, err := loadOwnerKeys(ownerKeyPaths)
	if err != nil {
		return writeVerifyOutput(jsonOutput, verifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}

	subs, err := parseSubstitutions(substitutions)
	if err != nil {
		return writeVerifyOutput(jsonOutput, verifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}

	logrus.WithField("layout", layoutPath).Debug("toto verify: starting")

	result, err := verify.Verify(context.Background(), verify.Options{
		LayoutData:         layoutData,
		OwnerKeys:          owners,
		MinOwnerSignatures: minSignatures,
		EvidenceDir:        evidenceDir,
		Substitutions:      subs,
		Resolve:            resolve.Options{BaseDir: base, Excludes: splitCSV(exclude), HashAlgorithms: splitCSV(hashAlgorithms)},
	})
	if err != nil {
		logrus.WithError(err).WithField("layout", layoutPath).Warn("toto verify: failed")
		return writeVerifyOutput(jsonOutput, verifyOutput{OK: false, Error: err.Error()}, exitCodeForError(err, exitVerifyFailed))
	}

	logrus.WithFields(logrus.Fields{"layout": layoutPath, "status": result.Status}).Info("toto verify: finished")
	return writeVerifyOutput(jsonOutput, verifyOutput{OK: true, Status: string(result.Status), Steps: result.Steps, Warnings: result.Warnings}, exitOK)
}

func writeVerifyOutput(jsonOutput bool, output verifyOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if !output.OK {
		fmt.Printf("verify error: %s\n", output.Error)
		return exitCode
	}
	fmt.Printf("verify %s\n", output.Status)
	for _, step := range output.Steps {
		fmt.Printf("  step %s: signers=%v\n", step.Name, step.Signers)
		for _, warning := range step.Warnings {
			fmt.Printf("    warning: %s\n", warning)
		}
	}
	for _, warning := range output.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
	return exitCode
}

// parseSubstitutions turns repeated --set NAME=VALUE flags into a
// substitution map for {NAME} tokens in the layout.
func parseSubstitutions(specs []string) (map[string]string, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	subs := make(map[string]string, len(specs))
	for _, spec := range specs {
		name, value, ok := splitOnce(spec, '=')
		if !ok {
			return nil, fmt.Errorf("--set value %q must be NAME=VALUE", spec)
		}
		subs[name] = value
	}
	return subs, nil
}
