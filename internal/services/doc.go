// Package services defines the error taxonomy and context helpers shared by
// the daemon, extractor, merge, and supervisor packages.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is (not installed, unreachable, timeout, parse,
//     validation, partial, external tool) without string matching.
//   - Context helpers that stamp download gids, operation names, and
//     correlation identifiers for logging.
//
// Use these helpers when adding new daemon or subprocess integrations so user
// facing reporting stays uniform across commands.
package services
