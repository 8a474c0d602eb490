package cmd

import "github.com/s0up4200/aitl/aitl"

// Process exit codes
const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitTransport = 3
)

// exitCode maps an error to the process exit code. Errors outside the aitl
// taxonomy come from flag parsing or configuration and count as usage errors.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	switch aitl.KindOf(err) {
	case aitl.KindAPI, aitl.KindProtocol:
		return exitFailure
	case aitl.KindTransport:
		return exitTransport
	default:
		return exitUsage
	}
}
