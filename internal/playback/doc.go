// Package playback tracks per-session filtering state.
//
// Each active playback session is either Idle (no qualifying segment) or
// Filtering (inside a segment the live policy qualifies). The monitor is the
// tracker's only writer; reads are safe for concurrent use by the status
// API. Sessions the media server stops reporting are swept rather than
// accumulating forever.
package playback
