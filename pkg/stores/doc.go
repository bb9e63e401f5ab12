// Package stores provides the persistence layer for the work type catalog.
// It owns a single SQLite connection, guarantees the WorkTypes table exists
// while open, and offers read-all, clear, upsert and transactional batch
// upsert operations over it.
package stores
