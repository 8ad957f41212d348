// Package transcript persists run activity as line-delimited JSON.
//
// Two complementary formats are provided:
//
//   - Recorder / ReadRecords: an append-only event log. Each committed history
//     message and (optionally) each streamed chunk becomes one line, flushed
//     immediately. The reader tolerates a torn trailing line so a transcript
//     from a crashed process loads up to its last committed record.
//   - SaveHistory / LoadHistory: a whole-history snapshot written atomically,
//     suitable for seeding a new runner via its history replay.
//
// Both formats use the message wire shapes from the core package, so
// transcripts written here interoperate with any JSON tooling.
package transcript
