// Package main hosts the bobbin CLI entrypoint and command graph.
//
// The Cobra-based command tree manages the aria2 daemon (start, stop, status),
// submits and controls downloads (add, list, pause, resume, remove), runs a
// live session (watch), and triggers one merge pass over split downloads. It
// centralizes configuration resolution and logger setup, and builds the
// supervisor with its collaborators so subcommands stay declarative.
package main
