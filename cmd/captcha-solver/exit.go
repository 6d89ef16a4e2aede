package main

import (
	cerrors "github.com/ironsheep/captcha-solver/internal/errors"
)

// exitCode maps a command error to the process exit status, so scripts can
// tell failure kinds apart without parsing stderr.
func exitCode(err error) int {
	switch cerrors.CodeOf(err) {
	case cerrors.ErrorUnsupportedFormat:
		return 2
	case cerrors.ErrorFormat:
		return 3
	case cerrors.ErrorDecode:
		return 4
	case cerrors.ErrorSegmentation:
		return 5
	case cerrors.ErrorModelLoad:
		return 6
	default:
		return 1
	}
}
