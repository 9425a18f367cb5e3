package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	toterrors "github.com/ossforge/toto/core/errors"
	"github.com/ossforge/toto/core/fsx"
	"github.com/ossforge/toto/core/keys"
	"github.com/ossforge/toto/core/model"
)

type signOutput struct {
	OK    bool   `json:"ok"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

func runSign(arguments []string) int {
	flagSet := flag.NewFlagSet("sign", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var metadataPath, out string
	var signerSpecs multiFlag
	var replace, jsonOutput bool

	flagSet.StringVar(&metadataPath, "metadata", "", "path to the layout or link to re-sign")
	flagSet.Var(&signerSpecs, "signer", "keytype:path, repeatable")
	flagSet.BoolVar(&replace, "replace", false, "discard existing signatures instead of appending")
	flagSet.StringVar(&out, "out", "", "output path, defaults to overwriting --metadata")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")

	if err := flagSet.Parse(arguments); err != nil {
		return writeSignOutput(jsonOutput, signOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if metadataPath == "" || len(signerSpecs) == 0 {
		return writeSignOutput(jsonOutput, signOutput{OK: false, Error: "--metadata and at least one --signer are required"}, exitInvalidInput)
	}
	if out == "" {
		out = metadataPath
	}

	signers, err := parseSignerSpecs(signerSpecs)
	if err != nil {
		return writeSignOutput(jsonOutput, signOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}

	// #nosec G304 -- path is an operator-supplied CLI flag.
	raw, err := os.ReadFile(metadataPath)
	if err != nil {
		return writeSignOutput(jsonOutput, signOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}

	logrus.WithField("metadata", metadataPath).Debug("toto sign: starting")

	path, err := resign(raw, signers, replace, out)
	if err != nil {
		logrus.WithError(err).WithField("metadata", metadataPath).Warn("toto sign: failed")
		return writeSignOutput(jsonOutput, signOutput{OK: false, Error: err.Error()}, exitCodeForError(err, exitInvalidInput))
	}

	logrus.WithField("path", path).Info("toto sign: wrote signed metadata")
	return writeSignOutput(jsonOutput, signOutput{OK: true, Path: path}, exitOK)
}

// resign decodes an on-disk envelope, either clears or keeps its existing
// signatures per replace, adds one signature per signer over the
// envelope's canonical bytes, and atomically writes the result to out.
func resign(raw []byte, signers []keys.Signer, replace bool, out string) (string, error) {
	envelope, err := model.DecodeEnvelope(raw)
	if err != nil {
		return "", toterrors.Wrap(err, toterrors.KindSchema, "decode_metadata", "check the file is a signed in-toto metadata document", toterrors.Context{})
	}
	if replace {
		envelope.Signatures = nil
	}

	signBytes, err := envelope.SignBytes()
	if err != nil {
		return "", toterrors.Wrap(err, toterrors.KindCrypto, "canonicalize_metadata", "", toterrors.Context{})
	}
	for _, signer := range signers {
		sig, err := signer.Sign(signBytes)
		if err != nil {
			return "", toterrors.Wrap(err, toterrors.KindCrypto, "sign_metadata", "check signer key material", toterrors.Context{})
		}
		envelope.AddSignature(sig)
	}

	encoded, err := envelope.MarshalJSON()
	if err != nil {
		return "", toterrors.Wrap(err, toterrors.KindRuntime, "marshal_metadata", "", toterrors.Context{})
	}
	if err := fsx.WriteFileAtomic(out, encoded, 0o600); err != nil {
		return "", toterrors.Wrap(err, toterrors.KindIO, "write_metadata", "check output path permissions", toterrors.Context{Path: out})
	}
	return out, nil
}

func writeSignOutput(jsonOutput bool, output signOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Printf("sign ok: path=%s\n", output.Path)
		return exitCode
	}
	fmt.Printf("sign error: %s\n", output.Error)
	return exitCode
}
