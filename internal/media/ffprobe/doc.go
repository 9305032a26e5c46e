// Package ffprobe wraps ffprobe's JSON output for verifying merged files.
//
// Inspect runs ffprobe against a path and returns a Result whose helpers
// count video and audio streams and expose the container duration and size.
// InspectWith accepts an injected output function so callers and tests can
// substitute the subprocess.
package ffprobe
