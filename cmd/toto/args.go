package main

import "strings"

// splitCSV splits a comma-separated flag value into its trimmed,
// non-empty entries. An empty input yields nil, not a one-element slice.
func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
