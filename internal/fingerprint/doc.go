// Package fingerprint computes content fingerprints for file variants: an
// exact SHA-1 over the asset bytes and, for images, a perceptual hash used
// for near-duplicate detection across encodings.
package fingerprint
