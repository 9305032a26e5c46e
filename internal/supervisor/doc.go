// Package supervisor owns a bobbin session: it accepts add-download input,
// routes video-host URLs through the extractor, submits work to aria2, polls
// the daemon into an immutable snapshot, merges completed split downloads,
// and runs the ordered removal sequence.
//
// A Supervisor is an explicit owned object. Construct it with New, call Start
// to run the poll and merge-watcher loops, and Close to stop them. One-shot
// callers (the CLI's add, remove, pause, and merge commands) may use the
// operations without starting the loops.
package supervisor
