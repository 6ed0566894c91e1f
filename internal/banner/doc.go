// Package banner detects, decides, and composites indicator banners on poster
// artwork.
//
// Poster classes are described as data (Catalog): canonical size, detection
// regions with their reference templates and inclusive cutoffs, and the
// overlay templates for each banner kind. A ReferenceSet loads templates from
// an fs.FS once per class and is shared read-only by the Detector and the
// Compositor. Decide turns a DetectionResult, media attributes, and feature
// flags into an ordered list of Actions plus the metadata labels the media
// server should carry.
//
// Detection never aborts a poster because of a bad template or region: the
// affected region is reported as StateUnknown and treated as absent by Decide.
package banner
