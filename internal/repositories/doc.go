// Package repositories implements SQLite-backed persistence for the mixtape
// domain entities.
//
// Each repository wraps a [database/sql] connection with hand-written queries.
// Unique-constraint violations from SQLite are translated to the sentinel
// errors in [shared] so callers can classify conflicts without inspecting
// driver internals. Cascade deletion (user -> playlists -> tracks) is handled
// by the schema's foreign keys, not application code.
package repositories
