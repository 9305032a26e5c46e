// Package aria2 is a typed JSON-RPC client for the aria2c download daemon.
//
// Only the subset of the RPC surface bobbin uses is covered: adding URIs,
// pausing, resuming, force-removing, clearing results, listing tasks,
// reading the version, and shutting the daemon down. Call prefixes the
// "aria2." namespace, prepends the "token:<secret>" parameter when a secret
// is configured, and classifies failures as connection, timeout, parse, or
// daemon-returned *RPCError. The client never retries.
package aria2
