package resolve

import (
	"fmt"
	"strings"
)

// normalizeRelPath converts path separators to '/' and collapses
// repeated separators. Callers decide whether a trailing separator is
// an error (files reject it; directories permit it).
func normalizeRelPath(path string) string {
	converted := strings.ReplaceAll(path, "\\", "/")
	for strings.Contains(converted, "//") {
		converted = strings.ReplaceAll(converted, "//", "/")
	}
	return strings.TrimPrefix(converted, "/")
}

// normalizeFilePath is normalizeRelPath plus the file-specific rule
// that a trailing separator is rejected (spec §4.4).
func normalizeFilePath(path string) (string, error) {
	normalized := normalizeRelPath(path)
	if strings.HasSuffix(normalized, "/") {
		return "", fmt.Errorf("resolve: file path %q must not have a trailing separator", path)
	}
	return normalized, nil
}
