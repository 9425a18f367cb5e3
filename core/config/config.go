// Package config loads the small set of CLI defaults a toto invocation
// can pull from a project file instead of repeating on every command
// line: which hash algorithms to compute, which paths to exclude from
// resolution, the base directory artifact URIs resolve against, and the
// key type "keys init" generates when none is given.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// DefaultPath is where toto looks for a project config file when none
// is given explicitly.
const DefaultPath = ".toto/config.yaml"

// Config is the on-disk shape of a project config file.
type Config struct {
	Resolve  ResolveDefaults  `yaml:"resolve"`
	Keys     KeysDefaults     `yaml:"keys"`
	Evidence EvidenceDefaults `yaml:"evidence"`
}

// ResolveDefaults supplies the artifact resolver's defaults: hash
// algorithms, exclude patterns, and base directory.
type ResolveDefaults struct {
	HashAlgorithms []string `yaml:"hash_algorithms"`
	Excludes       []string `yaml:"excludes"`
	BaseDir        string   `yaml:"base_dir"`
}

// KeysDefaults supplies "keys init"'s defaults.
type KeysDefaults struct {
	KeyType string `yaml:"key_type"`
	OutDir  string `yaml:"out_dir"`
}

// EvidenceDefaults supplies verify's default evidence directory; the
// recording commands take their output directory from --out instead.
type EvidenceDefaults struct {
	Dir string `yaml:"dir"`
}

// Load reads and parses the config file at path. When allowMissing is
// true and the file does not exist, Load returns a zero Config instead
// of an error — callers fall back to their own hardcoded defaults.
func Load(path string, allowMissing bool) (Config, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return Config{}, fmt.Errorf("config: path is required")
	}

	// #nosec G304 -- project config path is explicit local input.
	content, err := os.ReadFile(trimmedPath)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", trimmedPath, err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return Config{}, nil
	}

	var configuration Config
	if err := yaml.Unmarshal(content, &configuration); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", trimmedPath, err)
	}
	configuration.normalize()
	return configuration, nil
}

func (configuration *Config) normalize() {
	configuration.Resolve.BaseDir = strings.TrimSpace(configuration.Resolve.BaseDir)
	for i, pattern := range configuration.Resolve.Excludes {
		configuration.Resolve.Excludes[i] = strings.TrimSpace(pattern)
	}
	for i, algorithm := range configuration.Resolve.HashAlgorithms {
		configuration.Resolve.HashAlgorithms[i] = strings.ToLower(strings.TrimSpace(algorithm))
	}
	configuration.Keys.KeyType = strings.ToLower(strings.TrimSpace(configuration.Keys.KeyType))
	configuration.Keys.OutDir = strings.TrimSpace(configuration.Keys.OutDir)
	configuration.Evidence.Dir = strings.TrimSpace(configuration.Evidence.Dir)
}
