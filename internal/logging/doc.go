// Package logging assembles structured slog loggers used across infobeamer-cms.
//
// It owns the console and JSON handlers, mirrors every record into a JSON log
// file when a log directory is configured, and exposes context-aware helpers
// so sync and moderation code can tag log lines with run, setup, and asset
// identifiers. Console output is coloured only when writing to a terminal.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the system.
package logging
