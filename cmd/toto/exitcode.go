package main

import (
	toterrors "github.com/ossforge/toto/core/errors"
)

// Exit codes, per the collaborator contract's CLI surface: success,
// verification failure (policy violation), invalid input.
const (
	exitOK           = 0
	exitVerifyFailed = 1
	exitInvalidInput = 2
)

// exitCodeForError maps a classified error's Kind to the three-code exit
// scheme. Crypto/Threshold/Rule/Expired/Runtime/Timeout failures are
// policy-relevant verification outcomes; Schema/IO failures mean the
// input itself was unusable. An unclassified error (one that never
// passed through core/errors) falls back to fallbackExit.
func exitCodeForError(err error, fallbackExit int) int {
	if err == nil {
		return exitOK
	}
	switch toterrors.KindOf(err) {
	case toterrors.KindCrypto, toterrors.KindThreshold, toterrors.KindRule, toterrors.KindExpired, toterrors.KindRuntime, toterrors.KindTimeout:
		return exitVerifyFailed
	case toterrors.KindSchema, toterrors.KindIO:
		return exitInvalidInput
	default:
		return fallbackExit
	}
}
