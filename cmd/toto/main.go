// Command toto is the CLI surface over the recording and verification
// core: wrap-and-run and split record-start/record-stop recording,
// layout verification, metadata re-signing, and unsigned dry runs.
package main

import (
	"fmt"
	"os"
)

// version is stamped at release time via ldflags; default stays dev for
// local builds.
var version = "0.0.0-dev"

func main() {
	os.Exit(run(os.Args))
}

func run(arguments []string) int {
	configureLogging()
	return runDispatch(arguments)
}

func runDispatch(arguments []string) int {
	if len(arguments) < 2 {
		printUsage()
		return exitInvalidInput
	}

	switch arguments[1] {
	case "run":
		return runRun(arguments[2:])
	case "record-start":
		return runRecordStart(arguments[2:])
	case "record-stop":
		return runRecordStop(arguments[2:])
	case "verify":
		return runVerify(arguments[2:])
	case "sign":
		return runSign(arguments[2:])
	case "mock":
		return runMock(arguments[2:])
	case "keys":
		return runKeys(arguments[2:])
	case "version", "--version", "-v":
		fmt.Println("toto", version)
		return exitOK
	case "help", "--help", "-h":
		printUsage()
		return exitOK
	default:
		printUsage()
		return exitInvalidInput
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  toto run --step <name> --signer <keytype:path> [--signer ...] -- <argv...>")
	fmt.Println("      [--materials <csv>] [--products <csv>] [--dir <path>] [--base <path>]")
	fmt.Println("      [--exclude <csv>] [--hash-algorithms <csv>] [--timeout <duration>]")
	fmt.Println("      [--capture] [--out <dir>] [--json]")
	fmt.Println("  toto record-start --step <name> --signer <keytype:path> [--materials <csv>]")
	fmt.Println("      [--base <path>] [--exclude <csv>] [--hash-algorithms <csv>] [--out <dir>] [--json]")
	fmt.Println("  toto record-stop --step <name> --signer <keytype:path> [--products <csv>]")
	fmt.Println("      [--base <path>] [--exclude <csv>] [--hash-algorithms <csv>] [--out <dir>] [--json]")
	fmt.Println("  toto verify --layout <path> --owner-key <path> [--owner-key ...]")
	fmt.Println("      --evidence <dir> [--min-signatures <n>] [--set NAME=VALUE ...] [--json]")
	fmt.Println("  toto sign --metadata <path> --signer <keytype:path> [--signer ...]")
	fmt.Println("      [--replace] [--out <path>] [--json]")
	fmt.Println("  toto mock --step <name> -- <argv...>")
	fmt.Println("      [--materials <csv>] [--products <csv>] [--dir <path>] [--base <path>]")
	fmt.Println("      [--exclude <csv>] [--hash-algorithms <csv>] [--timeout <duration>]")
	fmt.Println("      [--capture] [--out <dir>] [--json]")
	fmt.Println("  toto keys init --out-dir <dir> --keytype <ed25519|rsa|ecdsa> [--json]")
	fmt.Println("  toto keys verify --pubkey <path> [--json]")
	fmt.Println("  toto version")
	fmt.Println("Project defaults load from .toto/config.yaml when present.")
	fmt.Println("Set TOTO_LOG_LEVEL (panic|fatal|error|warn|info|debug|trace) to change log verbosity.")
}
