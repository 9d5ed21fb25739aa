// Package cli holds the pieces shared by portalctl commands: typed errors
// with actionable guidance, exit code mapping, table/JSON/YAML output, a
// progress spinner and the common flag set.
//
// Errors coming out of the portal client are translated with Classify so
// that commands can print a helpful message and main can pick an exit code
// with ExitCode:
//
//	0  success
//	1  any other failure
//	2  authentication required or session terminated
//	3  login rejected
//
// Output follows kubectl conventions: -o table (default) renders a
// borderless table, -o json and -o yaml print the raw API objects.
package cli
