package main

import (
	"encoding/json"
	"fmt"
)

// writeJSONOutput marshals output as indented JSON to stdout and returns
// exitCode unchanged, so every subcommand's JSON path is a one-liner.
func writeJSONOutput(output any, exitCode int) int {
	encoded, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Println(`{"ok":false,"error":"failed to encode output"}`)
		return exitInvalidInput
	}
	fmt.Println(string(encoded))
	return exitCode
}
