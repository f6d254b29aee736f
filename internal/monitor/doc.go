// Package monitor runs the playback polling loop.
//
// A single goroutine ticks at the configured poll interval, reads a fresh
// filter policy snapshot, lists live playback sessions, and drives each
// session's Idle/Filtering state machine: on entry into a qualifying segment
// exactly one corrective action is dispatched; on exit the state is cleared
// without any action. Tick bodies run synchronously so ticks never overlap,
// and a failure handling one session never stops the rest of the tick.
package monitor
