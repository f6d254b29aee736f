// Package dispatch applies corrective playback actions when a session enters
// a filtered segment.
//
// The dispatcher issues a single command per segment entry: skip seeks past
// the segment end, mute silences the client and falls back to a skip when the
// target player cannot mute. Commands are bounded by a configurable timeout
// and never retried; failures are logged and optionally surfaced through
// notifications so the monitor loop stays non-blocking.
package dispatch
