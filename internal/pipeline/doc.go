// Package pipeline processes media-server items end to end.
//
// Process fetches one item and its poster, skips it when neither the media
// nor the artwork changed since the last run, detects banners already on the
// poster, secures a clean backup, decides which banners and labels to add,
// composites, verifies the artwork survived, uploads, and records the result
// in the store. Restore puts the backed-up original back. Run wraps a batch
// of items in an exclusive file lock and a run id, classifying per-item
// failures so one bad item never stops the batch.
package pipeline
