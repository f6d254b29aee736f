package playback

import (
	"sort"
	"sync"
	"time"

	"veil/internal/scores"
)

// Session is one playback instance as reported by the media server.
type Session struct {
	SessionID string
	MediaID   string
	Title     string
	// ClientID is the player machine identifier player commands target.
	ClientID string
	Player   string
	// Position is the playback offset in seconds.
	Position float64
	// CanMute reports whether the client advertises volume control.
	CanMute bool
}

// State is the tracked filtering state for one session.
type State struct {
	SessionID    string
	MediaID      string
	Title        string
	LastPosition float64
	// Active is the qualifying segment the session is currently inside,
	// or nil when Idle. Set and cleared only by the monitor.
	Active    *scores.Segment
	UpdatedAt time.Time
}

// Filtering reports whether the session is currently inside a qualifying segment.
func (s State) Filtering() bool {
	return s.Active != nil
}

// Tracker holds per-session state. The monitor owns all mutation
// (single-writer discipline); the lock exists so status readers can snapshot
// concurrently with ticks.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[string]*State
	now      func() time.Time
}

// NewTracker constructs an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		sessions: make(map[string]*State),
		now:      time.Now,
	}
}

// Observe records the latest report for a session, creating state on first
// sight. Switching to different media clears any active segment, since the
// previous qualification is meaningless for the new item.
func (t *Tracker) Observe(session Session) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.sessions[session.SessionID]
	if !ok {
		state = &State{SessionID: session.SessionID}
		t.sessions[session.SessionID] = state
	}
	if state.MediaID != session.MediaID {
		state.Active = nil
	}
	state.MediaID = session.MediaID
	state.Title = session.Title
	state.LastPosition = session.Position
	state.UpdatedAt = t.now()
	return *state
}

// Active returns the session's currently active segment, if any.
func (t *Tracker) Active(sessionID string) (scores.Segment, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.sessions[sessionID]
	if !ok || state.Active == nil {
		return scores.Segment{}, false
	}
	return *state.Active, true
}

// SetActive marks the session as Filtering inside seg.
func (t *Tracker) SetActive(sessionID string, seg scores.Segment) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.sessions[sessionID]
	if !ok {
		return
	}
	segment := seg
	state.Active = &segment
	state.UpdatedAt = t.now()
}

// ClearActive returns the session to Idle. No action accompanies leaving a
// segment; the state is simply dropped.
func (t *Tracker) ClearActive(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.sessions[sessionID]
	if !ok {
		return
	}
	state.Active = nil
	state.UpdatedAt = t.now()
}

// Sweep removes state for sessions absent from the reported set and returns
// how many were dropped. This is the explicit removal path that keeps the
// map from growing without bound as sessions end.
func (t *Tracker) Sweep(reported map[string]struct{}) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for sessionID := range t.sessions {
		if _, ok := reported[sessionID]; !ok {
			delete(t.sessions, sessionID)
			removed++
		}
	}
	return removed
}

// Snapshot returns a copy of all tracked states sorted by session id.
func (t *Tracker) Snapshot() []State {
	t.mu.RLock()
	states := make([]State, 0, len(t.sessions))
	for _, state := range t.sessions {
		copied := *state
		if state.Active != nil {
			segment := *state.Active
			copied.Active = &segment
		}
		states = append(states, copied)
	}
	t.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool {
		return states[i].SessionID < states[j].SessionID
	})
	return states
}

// Len returns the number of tracked sessions.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
