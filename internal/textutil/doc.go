// Package textutil provides lightweight text vectorization used by the
// dedup engine to bound its near-duplicate candidate sets.
package textutil
