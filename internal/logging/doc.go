// Package logging builds the slog loggers shared by the bobbin CLI and its
// background loops.
//
// Two handlers are available: a console handler that renders
// "time LEVEL component: message key=value" lines for terminals and log
// files, and a JSON handler with stable ts/level/msg keys for machine
// consumption. Component loggers, context-derived fields (task gid,
// operation, correlation id), and a no-op logger for tests round out the
// package.
package logging
