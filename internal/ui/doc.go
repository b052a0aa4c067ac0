// Package ui provides terminal output for the wifictl CLI.
//
// This package uses Bubble Tea and Lipgloss to render command output. The
// components follow a "run once and exit" pattern: a spinner while a scan
// or query is in flight, then a styled report.
//
//   - RunWithSpinner: runs a task behind a bubbles spinner
//   - RenderScanTable: scan results as a table, strongest signal first
//   - RenderStatus: a daemon status report
//   - Printer: writes reports, falling back to plain text when stdout is
//     not a terminal
//
// # Logging Integration
//
// CLI commands keep zap silent unless WIFICTL_LOG_LEVEL is set, so log
// lines do not interleave with the rendered output.
package ui
