package playback_test

import (
	"testing"

	"veil/internal/playback"
	"veil/internal/scores"
)

func TestObserveCreatesAndUpdatesState(t *testing.T) {
	tracker := playback.NewTracker()

	state := tracker.Observe(playback.Session{SessionID: "s1", MediaID: "movie-1", Position: 10})
	if state.MediaID != "movie-1" || state.LastPosition != 10 {
		t.Fatalf("unexpected state: %+v", state)
	}
	if tracker.Len() != 1 {
		t.Fatalf("expected one tracked session, got %d", tracker.Len())
	}

	state = tracker.Observe(playback.Session{SessionID: "s1", MediaID: "movie-1", Position: 12})
	if state.LastPosition != 12 {
		t.Fatalf("expected refreshed position, got %v", state.LastPosition)
	}
	if tracker.Len() != 1 {
		t.Fatalf("expected no duplicate state, got %d", tracker.Len())
	}
}

func TestActiveSegmentLifecycle(t *testing.T) {
	tracker := playback.NewTracker()
	tracker.Observe(playback.Session{SessionID: "s1", MediaID: "movie-1", Position: 121})

	seg := scores.Segment{Start: 120, End: 135, Action: scores.ActionSkip}
	tracker.SetActive("s1", seg)

	got, ok := tracker.Active("s1")
	if !ok || !got.Same(seg) {
		t.Fatalf("expected active segment, got %+v, %v", got, ok)
	}

	tracker.ClearActive("s1")
	if _, ok := tracker.Active("s1"); ok {
		t.Fatal("expected idle after clear")
	}
}

func TestMediaChangeClearsActive(t *testing.T) {
	tracker := playback.NewTracker()
	tracker.Observe(playback.Session{SessionID: "s1", MediaID: "movie-1", Position: 121})
	tracker.SetActive("s1", scores.Segment{Start: 120, End: 135, Action: scores.ActionSkip})

	tracker.Observe(playback.Session{SessionID: "s1", MediaID: "movie-2", Position: 5})
	if _, ok := tracker.Active("s1"); ok {
		t.Fatal("expected active segment cleared when media changed")
	}
}

func TestSetActiveIgnoresUnknownSession(t *testing.T) {
	tracker := playback.NewTracker()
	tracker.SetActive("ghost", scores.Segment{Start: 1, End: 2, Action: scores.ActionSkip})
	if tracker.Len() != 0 {
		t.Fatal("SetActive must not create sessions")
	}
}

func TestSweepRemovesVanishedSessions(t *testing.T) {
	tracker := playback.NewTracker()
	tracker.Observe(playback.Session{SessionID: "s1", MediaID: "movie-1"})
	tracker.Observe(playback.Session{SessionID: "s2", MediaID: "movie-2"})

	removed := tracker.Sweep(map[string]struct{}{"s2": {}})
	if removed != 1 {
		t.Fatalf("expected one session swept, got %d", removed)
	}
	if tracker.Len() != 1 {
		t.Fatalf("expected one remaining session, got %d", tracker.Len())
	}
	if _, ok := tracker.Active("s1"); ok {
		t.Fatal("swept session should be gone")
	}
}

func TestSnapshotIsDetachedCopy(t *testing.T) {
	tracker := playback.NewTracker()
	tracker.Observe(playback.Session{SessionID: "b", MediaID: "movie-2"})
	tracker.Observe(playback.Session{SessionID: "a", MediaID: "movie-1"})
	tracker.SetActive("a", scores.Segment{Start: 1, End: 2, Action: scores.ActionSkip})

	snapshot := tracker.Snapshot()
	if len(snapshot) != 2 || snapshot[0].SessionID != "a" || snapshot[1].SessionID != "b" {
		t.Fatalf("expected sorted snapshot, got %+v", snapshot)
	}

	// Mutating the snapshot must not leak into the tracker.
	snapshot[0].Active.End = 99
	got, ok := tracker.Active("a")
	if !ok || got.End != 2 {
		t.Fatalf("snapshot mutation leaked into tracker: %+v", got)
	}
}
