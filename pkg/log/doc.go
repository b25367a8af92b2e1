// Package log provides the structured diagnostic event trace.
//
// This package defines the Logger interface and Event types for capturing
// diagnostic activity on a device: operations, EOM protocol phases, state
// changes, counter snapshots and errors. It is separate from operational
// logging (slog). The trace is a complete machine-readable record of a
// validation session for later analysis.
//
// # Basic Usage
//
// Applications configure tracing by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.EventLogger = log.NewSlogAdapter(slog.Default())
//
//	// For lab runs: write to binary file
//	cfg.EventLogger, _ = log.NewFileLogger("/var/log/nvldiag/run.dlog")
//
//	// Both: use MultiLogger
//	cfg.EventLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// Components emit through a Trace, which stamps every event with the
// session, device and generation.
//
// # File Format
//
// Trace files use CBOR encoding with integer keys and the .dlog extension.
// The "nvldiag log" subcommand provides viewing and filtering.
package log
