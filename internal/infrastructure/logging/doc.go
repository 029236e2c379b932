// Package logging provides structured logging for Ember UI.
//
// It wraps the standard library's log/slog with configuration-driven
// setup (level, format, destination) and default attributes identifying
// the service and version.
//
// Usage:
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("server starting", "port", cfg.Server.Port)
package logging
