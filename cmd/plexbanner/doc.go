// Package main hosts the plexbanner CLI entrypoint and command graph.
//
// Offline commands (detect, apply, compare) work on poster files and only
// need the template assets. Online commands (process, restore) talk to Plex,
// record results in the item store and hold the run lock. items and config
// inspect local state.
package main
