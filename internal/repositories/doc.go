// Package repositories implements SQLite persistence for the activity journal.
//
// [ActivityRepository] implements models.Repository[*models.Activity] and records one row per
// bulk mutation (add to playlist, remove from liked songs) whether it succeeded or not.
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
