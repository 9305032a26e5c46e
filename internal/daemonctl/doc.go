// Package daemonctl manages the lifecycle of the aria2c download daemon.
//
// The Manager detects whether aria2c is installed and reachable, spawns it
// detached with a fixed baseline flag set plus configuration-driven flags,
// and stops it through a fallback chain: graceful RPC shutdown, forced RPC
// shutdown, SIGTERM, then SIGKILL against a discovered pid. Liveness always
// means RPC reachability; the process table is consulted only for reporting
// and as the last shutdown fallback. A cross-process flock serializes spawns
// so concurrent CLI invocations do not race to start two daemons.
package daemonctl
