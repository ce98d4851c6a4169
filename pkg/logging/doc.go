// Package logging provides structured logging configuration for reqtrace.
//
// The package wraps log/slog for the CLI and the devtools endpoint, and also
// defines ConsoleLogger, the minimal console-shaped collaborator the tracing
// core accepts. Instrumentation components never log through slog directly;
// they take a ConsoleLogger so callers can route tracing output anywhere.
//
// Create a structured logger:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
// Create the console collaborator for a tracing session:
//
//	sess := session.Start(session.Options{Logger: logging.Console()})
package logging
