// Package imagehash computes average hashes over poster images and regions.
//
// Images are reduced to 8-bit luma, downsampled to an 8x8 grid with Lanczos3
// and thresholded against the grid mean, producing a 64-bit fingerprint whose
// Hamming distance approximates visual difference. The package also owns the
// decode, normalize, and PNG encode helpers shared by detection and
// compositing so every caller sees the same resampling behaviour.
package imagehash
