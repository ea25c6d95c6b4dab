// Package log provides structured protocol logging for the gateway client.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events: HTTP exchanges with the device and state changes of
// the pairing and session state machines. It is separate from operational
// logging (slog) - protocol capture provides a machine-readable trace for
// debugging pairing and session renewal problems.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For field reports: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/tmp/fbx.flog")
//
//	// Both, with the console limited to transport exchanges
//	sinks := log.NewMultiLogger(fileLogger)
//	transport := log.LayerTransport
//	sinks.Route(log.NewSlogAdapter(slog.Default()), log.Filter{Layer: &transport})
//	cfg.ProtocolLogger = sinks
//
// # Secrets
//
// Events never carry request headers or bodies. Session tokens, app tokens and
// derived passwords must not be placed in any event field.
//
// # File Format
//
// Log files use CBOR encoding with .flog extension. Records are scrubbed
// before encoding (see Scrub) and the file rotates to <path>.1 once it
// reaches FileLoggerConfig.MaxSize. The "fbx log" command reads them back
// with optional filtering.
package log
