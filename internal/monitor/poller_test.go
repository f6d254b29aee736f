package monitor

import (
	"context"
	"errors"
	"testing"

	"veil/internal/config"
	"veil/internal/logging"
	"veil/internal/playback"
	"veil/internal/scores"
)

type scriptedLister struct {
	batches [][]playback.Session
	err     error
	calls   int
}

func (s *scriptedLister) ListSessions(context.Context) ([]playback.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.calls >= len(s.batches) {
		return nil, nil
	}
	batch := s.batches[s.calls]
	s.calls++
	return batch, nil
}

type recordSource struct {
	records map[string]*scores.Record
	errFor  string
}

func (r *recordSource) ActiveSegments(_ context.Context, mediaID string, t float64) ([]scores.Segment, error) {
	if r.errFor != "" && mediaID == r.errFor {
		return nil, errors.New("storage unavailable")
	}
	record, ok := r.records[mediaID]
	if !ok {
		return nil, nil
	}
	return record.ActiveSegments(t), nil
}

type fixedPolicy struct {
	policy scores.Policy
}

func (f *fixedPolicy) Snapshot() scores.Policy { return f.policy }

type dispatchCall struct {
	sessionID  string
	segment    scores.Segment
	categories []string
	feedback   bool
}

type recordingDispatcher struct {
	calls []dispatchCall
	err   error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, session playback.Session, segment scores.Segment, categories []string, feedback bool) error {
	d.calls = append(d.calls, dispatchCall{
		sessionID:  session.SessionID,
		segment:    segment,
		categories: categories,
		feedback:   feedback,
	})
	return d.err
}

func violencePolicy(threshold float64) scores.Policy {
	return scores.Policy{
		Feedback: true,
		Categories: map[string]scores.CategoryPolicy{
			scores.CategoryViolence: {Enabled: true, Threshold: threshold},
		},
	}
}

func skipSegment(start, end, score float64) scores.Segment {
	return scores.Segment{
		Start:     start,
		End:       end,
		RawScores: map[string]float64{"general_violence": score},
		Action:    scores.ActionSkip,
		Source:    "analysis",
	}
}

func newTestPoller(lister SessionLister, source ScoreSource, policy scores.Policy, dispatcher ActionDispatcher) (*Poller, *playback.Tracker) {
	cfg := config.Default()
	tracker := playback.NewTracker()
	p := New(&cfg, lister, source, &fixedPolicy{policy: policy}, dispatcher, tracker, logging.NewNop())
	return p, tracker
}

func session(id, mediaID string, position float64) playback.Session {
	return playback.Session{SessionID: id, MediaID: mediaID, Title: "Example", Position: position}
}

func TestTickDispatchesOncePerSegmentEntry(t *testing.T) {
	lister := &scriptedLister{batches: [][]playback.Session{
		{session("sess-1", "movie-1", 119.9)},
		{session("sess-1", "movie-1", 121)},
		{session("sess-1", "movie-1", 136)},
	}}
	source := &recordSource{records: map[string]*scores.Record{
		"movie-1": {MediaID: "movie-1", Segments: []scores.Segment{skipSegment(120, 135, 0.92)}},
	}}
	dispatcher := &recordingDispatcher{}
	p, tracker := newTestPoller(lister, source, violencePolicy(0.90), dispatcher)

	ctx := context.Background()
	p.tick(ctx) // 119.9: before the segment
	if len(dispatcher.calls) != 0 {
		t.Fatalf("no dispatch expected before segment entry, got %d", len(dispatcher.calls))
	}

	p.tick(ctx) // 121: enters the segment
	if len(dispatcher.calls) != 1 {
		t.Fatalf("expected exactly one dispatch on entry, got %d", len(dispatcher.calls))
	}
	call := dispatcher.calls[0]
	if call.segment.End != 135 || call.segment.Action != scores.ActionSkip {
		t.Fatalf("unexpected dispatched segment: %+v", call.segment)
	}
	if len(call.categories) != 1 || call.categories[0] != scores.CategoryViolence {
		t.Fatalf("unexpected categories: %v", call.categories)
	}
	if !call.feedback {
		t.Fatal("feedback flag should follow the policy")
	}
	if _, filtering := tracker.Active("sess-1"); !filtering {
		t.Fatal("session should be tracked as filtering")
	}

	p.tick(ctx) // 136: past the segment, exit is silent
	if len(dispatcher.calls) != 1 {
		t.Fatalf("exit must not dispatch, got %d calls", len(dispatcher.calls))
	}
	if _, filtering := tracker.Active("sess-1"); filtering {
		t.Fatal("session should have returned to idle")
	}
}

func TestTickDoesNotRedispatchInsideSegment(t *testing.T) {
	lister := &scriptedLister{batches: [][]playback.Session{
		{session("sess-1", "movie-1", 121)},
		{session("sess-1", "movie-1", 125)},
		{session("sess-1", "movie-1", 130)},
	}}
	source := &recordSource{records: map[string]*scores.Record{
		"movie-1": {MediaID: "movie-1", Segments: []scores.Segment{skipSegment(120, 135, 0.92)}},
	}}
	dispatcher := &recordingDispatcher{}
	p, _ := newTestPoller(lister, source, violencePolicy(0.90), dispatcher)

	ctx := context.Background()
	p.tick(ctx)
	p.tick(ctx)
	p.tick(ctx)
	if len(dispatcher.calls) != 1 {
		t.Fatalf("expected a single dispatch while inside one segment, got %d", len(dispatcher.calls))
	}
}

func TestTickRedispatchesWhenWinnerChanges(t *testing.T) {
	lister := &scriptedLister{batches: [][]playback.Session{
		{session("sess-1", "movie-1", 121)},
		{session("sess-1", "movie-1", 141)},
	}}
	source := &recordSource{records: map[string]*scores.Record{
		"movie-1": {MediaID: "movie-1", Segments: []scores.Segment{
			skipSegment(120, 160, 0.92),
			skipSegment(140, 150, 0.95),
		}},
	}}
	dispatcher := &recordingDispatcher{}
	p, _ := newTestPoller(lister, source, violencePolicy(0.90), dispatcher)

	ctx := context.Background()
	p.tick(ctx)
	p.tick(ctx)
	// At 141 both segments qualify; the winner is still the one starting at
	// 120 (earliest start), so no new dispatch happens.
	if len(dispatcher.calls) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(dispatcher.calls))
	}
	if dispatcher.calls[0].segment.Start != 120 {
		t.Fatalf("expected earliest-start winner, got start=%v", dispatcher.calls[0].segment.Start)
	}
}

func TestTickPolicyChangeClearsWithoutAction(t *testing.T) {
	lister := &scriptedLister{batches: [][]playback.Session{
		{session("sess-1", "movie-1", 121)},
		{session("sess-1", "movie-1", 122)},
	}}
	source := &recordSource{records: map[string]*scores.Record{
		"movie-1": {MediaID: "movie-1", Segments: []scores.Segment{skipSegment(120, 135, 0.92)}},
	}}
	dispatcher := &recordingDispatcher{}
	policy := &fixedPolicy{policy: violencePolicy(0.90)}
	cfg := config.Default()
	tracker := playback.NewTracker()
	p := New(&cfg, lister, source, policy, dispatcher, tracker, logging.NewNop())

	ctx := context.Background()
	p.tick(ctx)
	if len(dispatcher.calls) != 1 {
		t.Fatalf("expected dispatch on entry, got %d", len(dispatcher.calls))
	}

	// Raise the threshold so the segment stops qualifying mid-playback.
	policy.policy = violencePolicy(0.95)
	p.tick(ctx)
	if len(dispatcher.calls) != 1 {
		t.Fatalf("disqualified segment must not dispatch, got %d calls", len(dispatcher.calls))
	}
	if _, filtering := tracker.Active("sess-1"); filtering {
		t.Fatal("session should be idle after the policy change")
	}
}

func TestTickIsolatesPerSessionFailures(t *testing.T) {
	lister := &scriptedLister{batches: [][]playback.Session{{
		session("sess-bad", "movie-broken", 121),
		session("sess-good", "movie-1", 121),
	}}}
	source := &recordSource{
		records: map[string]*scores.Record{
			"movie-1": {MediaID: "movie-1", Segments: []scores.Segment{skipSegment(120, 135, 0.92)}},
		},
		errFor: "movie-broken",
	}
	dispatcher := &recordingDispatcher{}
	p, _ := newTestPoller(lister, source, violencePolicy(0.90), dispatcher)

	p.tick(context.Background())
	if len(dispatcher.calls) != 1 || dispatcher.calls[0].sessionID != "sess-good" {
		t.Fatalf("healthy session should still dispatch, got %+v", dispatcher.calls)
	}
}

func TestTickListFailureLeavesStateUntouched(t *testing.T) {
	lister := &scriptedLister{batches: [][]playback.Session{
		{session("sess-1", "movie-1", 121)},
	}}
	source := &recordSource{records: map[string]*scores.Record{
		"movie-1": {MediaID: "movie-1", Segments: []scores.Segment{skipSegment(120, 135, 0.92)}},
	}}
	dispatcher := &recordingDispatcher{}
	p, tracker := newTestPoller(lister, source, violencePolicy(0.90), dispatcher)

	ctx := context.Background()
	p.tick(ctx)
	if _, filtering := tracker.Active("sess-1"); !filtering {
		t.Fatal("expected session to be filtering")
	}

	lister.err = errors.New("plex unreachable")
	p.tick(ctx)
	if _, filtering := tracker.Active("sess-1"); !filtering {
		t.Fatal("list failure must not reset tracked state")
	}
	if tracker.Len() != 1 {
		t.Fatalf("list failure must not sweep sessions, got %d tracked", tracker.Len())
	}
}

func TestSweepForgetsSessionsAfterGraceTicks(t *testing.T) {
	lister := &scriptedLister{batches: [][]playback.Session{
		{session("sess-1", "movie-1", 10)},
		{}, // absent once: kept
		{}, // absent twice: swept (default session_idle_sweeps = 2)
	}}
	source := &recordSource{records: map[string]*scores.Record{}}
	dispatcher := &recordingDispatcher{}
	p, tracker := newTestPoller(lister, source, violencePolicy(0.90), dispatcher)

	ctx := context.Background()
	p.tick(ctx)
	if tracker.Len() != 1 {
		t.Fatalf("expected one tracked session, got %d", tracker.Len())
	}

	p.tick(ctx)
	if tracker.Len() != 1 {
		t.Fatalf("session should survive one absent tick, got %d tracked", tracker.Len())
	}

	p.tick(ctx)
	if tracker.Len() != 0 {
		t.Fatalf("session should be swept after the grace period, got %d tracked", tracker.Len())
	}
}

func TestStartStopLifecycle(t *testing.T) {
	lister := &scriptedLister{}
	source := &recordSource{records: map[string]*scores.Record{}}
	dispatcher := &recordingDispatcher{}
	p, _ := newTestPoller(lister, source, violencePolicy(0.90), dispatcher)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := p.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail while running")
	}
	p.Stop()
	p.Stop() // idempotent

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	p.Stop()
}
