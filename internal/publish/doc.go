// Package publish holds the upload mode policy deciding when eligible
// records go out, and the Publisher contract for the destination. The
// built-in destination is a local directory; network destinations implement
// the same interface.
package publish
