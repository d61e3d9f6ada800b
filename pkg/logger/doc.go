// Package logger provides structured logging for igfetch on top of zerolog.
//
// A Logger is built from config.LoggingConfig. Console output goes to stderr
// with colored levels; when a file is configured every event is also written
// to it as JSON.
//
//	log, err := logger.New(&cfg.Logging)
//	log.WithField("shortcode", id).Info("resolving post")
//
// LogRequest and LogResolve give upstream requests and resolutions a
// consistent set of fields. Tests use NewTestLogger to capture messages or
// NewNopLogger to discard them.
package logger
