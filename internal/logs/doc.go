// Package logs reads bobbin's log file for the CLI's logs command.
//
// Last returns the final N lines with bounded memory and the offset at which
// they end; Follow polls from an offset and emits lines as they are appended,
// starting over when the file is truncated or replaced.
package logs
