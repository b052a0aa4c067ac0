// Package logging provides structured logging for the wifictl daemon and CLI.
//
// This package wraps a global zap logger with convenience functions for the
// common logging patterns of the connection manager and the portal.
//
// # Log Levels
//
//   - Debug: event plumbing, stale reconnects, portal message contents
//   - Info: mode changes, connections, scans, reconnect scheduling
//   - Warn: recoverable drops, configuration downgrades, persistence failures
//   - Error: fatal disconnects, lock timeouts, startup failures
//
// # Component Loggers
//
// Packages take an optional *zap.Logger and fall back to a named child of the
// global logger:
//
//	log := logging.Named("wifi")
//	log.Info("Access point started", zap.String("ssid", ssid))
//
// # Specialized Logging
//
//	logging.LogModeChange(log, "ap", "apsta")
//	logging.LogDisconnect(log, 200, "Beacon timeout", "signal_loss", true)
//	logging.LogScan(log, 7)
//	logging.LogConnection(remoteAddr, "websocket_upgraded")
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize(cfg.LogLevel); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// An empty level falls back to WIFICTL_LOG_LEVEL; when that is also empty
// the logger is a no-op, which keeps CLI output clean.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Initialize and
// SetLogger must be called before other goroutines start logging.
package logging
