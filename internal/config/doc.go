// Package config loads, normalizes, and validates bobbin configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// BOBBIN_ARIA2_SECRET. The Config type centralizes every knob the daemon
// manager, extractor, merger, supervisor, and CLI need.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
