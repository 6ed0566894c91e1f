// Package backup keeps clean copies of original poster artwork.
//
// Every item gets a stable path under the backup root derived from its
// class, title and GUID. Store decides, from the detection result, whether
// the poster just fetched is trustworthy enough to become that clean copy,
// falling back to a poster_bak.png sidecar next to the media file or an
// earlier backup. Bannered results can be kept alongside for comparison on
// the next run.
package backup
