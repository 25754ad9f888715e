// Package dedup finds exact (sha1) and near (perceptual hash) duplicate
// matches for harvested records. Detection is re-run on every refresh: the
// published corpus grows over time, so a record harmless yesterday may be a
// duplicate today.
package dedup
