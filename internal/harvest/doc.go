// Package harvest drives source adapters through the full pipeline:
// pagination with bounded retries and a year-splitting fallback, per-item
// fingerprinting, duplicate detection, eligibility evaluation, the publish
// gate, and upstream-deletion verification. Item failures become durable
// Problems; a loop only stops on cancellation or an unreachable store.
package harvest
