// Package logging provides the subsystem logger used across portalctl.
//
// It is a thin layer over log/slog: every entry carries a "subsystem"
// attribute, messages are printf-style, and errors are attached as an
// "error" attribute.
//
// # Initialization
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)  // key=value text
//	logging.InitForJSON(logging.LevelDebug, os.Stderr) // one JSON object per line
//
// Until one of the Init functions runs, INFO and above go to stderr as text.
//
// # Usage
//
//	logging.Info("Session", "Session initialised (authenticated=%t)", ok)
//	logging.Error("Refresh", err, "Token refresh failed")
//
// Components that take a *slog.Logger can use Logger("Transport").
//
// # Audit Logging
//
// Changes to the stored credentials are logged with Audit. The message is
// prefixed with SECURITY_AUDIT: and the event name is repeated in the "event"
// attribute so log pipelines can filter on it:
//
//	logging.Audit(logging.AuditEvent{
//	    Event:   "session_ended",
//	    Outcome: "success",
//	    Reason:  "refresh failed",
//	})
//
// Token values are never logged, only their presence.
package logging
