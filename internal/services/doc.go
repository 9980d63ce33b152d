// Package services defines shared utilities consumed by the sync run, the
// moderation workflow, and the hosted API integration.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, setup IDs, asset IDs, and operation
//     names for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is (not found, validation, transient transport).
//
// Use these helpers when wiring new integrations so error handling and
// observability stay uniform across commands.
package services
