// Package store persists per-item banner state in SQLite.
//
// Each media-server item is keyed by its GUID. A record remembers the media
// attributes the banners were decided from, the file size seen at that time,
// where the clean and bannered posters were backed up, and the hash of the
// poster last uploaded. The pipeline consults the record to skip items whose
// media and artwork have not changed since the last run.
//
// The schema is versioned in a schema_version table; a mismatched version is
// reported as ErrSchemaMismatch rather than migrated.
package store
