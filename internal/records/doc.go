// Package records implements the record store: SQLite-backed persistence for
// harvested media records, their content-hash index, recorded problems, and
// per-source run bookkeeping. All record mutation is upsert-by-stable-id so
// concurrent harvest loops for different sources never contend on a row.
package records
