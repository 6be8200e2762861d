// Package download provides the concurrent transfer engine that turns
// resolved stream URLs into files on disk.
//
// # Engine
//
// The Engine runs one Batch at a time. A batch groups the jobs that
// share a destination plan (one album or one playlist):
//
//	engine := download.NewEngine(settings, client, tagger, func(e download.ProgressEvent) {
//	    fmt.Println(e.Message)
//	})
//
//	results := engine.Run(ctx, download.Batch{
//	    Plan: plan,
//	    Jobs: jobs,
//	})
//
// Each job is transferred independently:
//
//  1. Skip if the destination file already exists (optional)
//  2. Stream the body to disk, counting bytes as they arrive
//  3. Hand the finished file to the Tagger
//
// A failing job records its error in the matching Result and never
// aborts the rest of the batch. A tagging failure is recorded on the
// Result but the downloaded file stands.
//
// # Concurrency
//
// Transfers run under an errgroup bounded by
// Settings.MaxConcurrentDownloads. Destination directories are created
// idempotently, so concurrent jobs racing into the same directory are
// harmless.
//
// # Progress Tracking
//
// Two channels of progress exist side by side:
//   - Engine.Progress() returns atomic aggregate counters (bytes and
//     files, received and total) safe to poll from a UI tick
//   - the ProgressEvent callback delivers leveled human-readable
//     messages as things happen
//
// # Batch Extras
//
// Per settings, the engine saves a cover.jpg into the destination
// directory before the transfers start, and writes an M3U playlist
// after a batch in which every job succeeded.
package download
