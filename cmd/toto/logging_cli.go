package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

// configureLogging sets the verification pipeline and CLI's logging
// level from TOTO_LOG_LEVEL (default "info"), matching logrus's own
// level vocabulary (panic, fatal, error, warn, info, debug, trace).
// Output goes to stderr so it never interleaves with a command's
// --json stdout payload.
func configureLogging() {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})

	level := os.Getenv("TOTO_LOG_LEVEL")
	if level == "" {
		logrus.SetLevel(logrus.InfoLevel)
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.SetLevel(logrus.InfoLevel)
		logrus.WithField("value", level).Warn("toto: unrecognized TOTO_LOG_LEVEL, defaulting to info")
		return
	}
	logrus.SetLevel(parsed)
}
