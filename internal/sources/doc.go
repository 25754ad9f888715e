// Package sources defines the adapter contract between external media
// providers and the harvest pipeline, the YAML source definitions, and the
// built-in RSS/Atom adapter. Everything source-specific stays behind the
// Adapter interface; the pipeline consumes normalized SourceItems only.
package sources
