// Package plex is a small Plex Media Server client covering the calls the
// banner pipeline makes: resolve library sections, list and fetch item
// metadata, download a poster rendition, upload a replacement poster, and
// attach labels.
//
// Every request carries the X-Plex-Token header. Failures are tagged with
// the services markers so callers can classify them: 401/403 responses are
// configuration errors, 404 is not-found, and transport failures or 5xx
// responses are transient.
package plex
