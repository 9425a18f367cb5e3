package main

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ossforge/toto/core/config"
)

// loadCLIConfig loads the project config file at config.DefaultPath.
// A missing file is not an error — every subcommand's own hardcoded
// flag defaults take over. A present-but-unparseable file logs a
// warning and falls back the same way, rather than failing the command.
func loadCLIConfig() config.Config {
	cfg, err := config.Load(config.DefaultPath, true)
	if err != nil {
		logrus.WithError(err).Warn("toto: ignoring unreadable project config")
		return config.Config{}
	}
	return cfg
}

// joinCSV renders values as the comma-separated string a flag.Var of
// type multiFlag, or a plain comma-separated flag, expects as its
// default.
func joinCSV(values []string) string {
	return strings.Join(values, ",")
}
