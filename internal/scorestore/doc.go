// Package scorestore persists per-media segment score records in SQLite and
// serves reads from an in-memory cache.
//
// Records are replaced wholesale: a put writes the durable row inside a
// transaction and then swaps the cache entry, so concurrent readers observe
// either the old or the new record in full, never a mix. Cached records are
// treated as immutable; callers must not modify what they are handed.
package scorestore
