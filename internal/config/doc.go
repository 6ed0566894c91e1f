// Package config loads, normalizes, and validates plexbanner configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PLEX_TOKEN. The Config type centralizes every knob the CLI and pipeline
// need so state, asset, and backup directories and media server credentials
// are discovered in one pass.
package config
