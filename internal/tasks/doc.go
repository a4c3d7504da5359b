// Package tasks runs the bulk workflows behind the dashboard with non-blocking progress reporting.
//
// # Fetching
//
// [Engine.FetchLiked] pages through liked songs 50 at a time, strictly in order, and stops at the
// first short page. There is no total-count check.
//
// # Genre Enrichment
//
// Genres come from a track's first two artists, looked up in one batched call per track and merged
// as a set. Lookups are paced by a static [BackoffPolicy]:
//   - [InlinePolicy] (batches of 10, 50ms between lookups, 200ms between batches) for [Engine.LikedSongs]
//   - [DeferredPolicy] (batches of 5, 200ms between lookups, 500ms between batches) for [Engine.Genres]
//
// A rate-limited lookup ends enrichment: that track and every later one keep empty genres and the
// result is flagged partial. Enrichment never fails the request.
//
// # Mutations
//
// [Engine.AddToPlaylist] and [Engine.RemoveFromLiked] split their input into batches of 100 and 50,
// send them one at a time through a [rate.Limiter], and abort on the first failure. Each mutation
// is recorded to the optional [Journal].
//
// # Progress Reporting
//
// All operations take an optional channel of [ProgressUpdate]. Sends use select with default so a
// slow or absent reader never blocks the workflow.
package tasks
