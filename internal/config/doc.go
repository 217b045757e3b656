// Package config loads, normalizes, and validates Scribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and validates segment/overlap bounds and
// worker topology. The Config type centralizes every knob the daemon and CLI
// need, so downstream code receives sanitized paths and clear validation
// errors in one pass.
package config
