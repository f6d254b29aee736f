package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"veil/internal/config"
	"veil/internal/logging"
	"veil/internal/playback"
	"veil/internal/scores"
)

// SessionLister reports the playback sessions currently active on the
// media server.
type SessionLister interface {
	ListSessions(ctx context.Context) ([]playback.Session, error)
}

// ScoreSource resolves the segments covering a playback position.
type ScoreSource interface {
	ActiveSegments(ctx context.Context, mediaID string, t float64) ([]scores.Segment, error)
}

// PolicySource yields the filter policy in effect for a tick.
type PolicySource interface {
	Snapshot() scores.Policy
}

// ActionDispatcher applies a segment's corrective action to a session.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, session playback.Session, segment scores.Segment, categories []string, feedback bool) error
}

// Poller drives the playback filtering state machine. One goroutine ticks at
// the configured interval; tick bodies run synchronously so ticks never
// overlap even when a dispatch is slow.
type Poller struct {
	sessions   SessionLister
	store      ScoreSource
	policies   PolicySource
	dispatcher ActionDispatcher
	tracker    *playback.Tracker
	logger     *slog.Logger

	pollInterval   time.Duration
	sessionTimeout time.Duration
	idleSweeps     int

	// missed counts consecutive ticks each tracked session has been absent
	// from the session list. Only the loop goroutine touches it.
	missed map[string]int

	mu      sync.Mutex
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a poller from the monitor configuration.
func New(cfg *config.Config, sessions SessionLister, store ScoreSource, policies PolicySource, dispatcher ActionDispatcher, tracker *playback.Tracker, logger *slog.Logger) *Poller {
	interval := time.Duration(cfg.Monitor.PollIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	sessionTimeout := time.Duration(cfg.Monitor.SessionTimeout) * time.Second
	if sessionTimeout <= 0 {
		sessionTimeout = 10 * time.Second
	}
	idleSweeps := cfg.Monitor.SessionIdleSweeps
	if idleSweeps <= 0 {
		idleSweeps = 1
	}
	return &Poller{
		sessions:       sessions,
		store:          store,
		policies:       policies,
		dispatcher:     dispatcher,
		tracker:        tracker,
		logger:         logging.NewComponentLogger(logger, "monitor"),
		pollInterval:   interval,
		sessionTimeout: sessionTimeout,
		idleSweeps:     idleSweeps,
		missed:         make(map[string]int),
	}
}

// Start launches the polling loop. It returns an error when the poller is
// already running.
func (p *Poller) Start(ctx context.Context) error {
	if p == nil {
		return errors.New("poller unavailable")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errors.New("poller already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.ctx = runCtx
	p.cancel = cancel
	p.running = true

	p.wg.Add(1)
	go p.loop()
	return nil
}

// Stop halts the polling loop and waits for the in-flight tick to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

func (p *Poller) loop() {
	defer p.wg.Done()

	p.tick(p.ctx)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.tick(p.ctx)
		}
	}
}

// tick evaluates every live session against the stored segments under one
// policy snapshot. List failures leave tracked state untouched so a transient
// server error cannot reset the filtering state machine.
func (p *Poller) tick(ctx context.Context) {
	if ctx == nil || ctx.Err() != nil {
		return
	}

	tickID := uuid.NewString()
	policy := p.policies.Snapshot()

	listCtx, cancel := context.WithTimeout(ctx, p.sessionTimeout)
	sessions, err := p.sessions.ListSessions(listCtx)
	cancel()
	if err != nil {
		p.logger.Warn("session list failed; will retry",
			logging.Error(err),
			logging.String(logging.FieldTickID, tickID),
			logging.String(logging.FieldEventType, "session_list_failed"),
			logging.String(logging.FieldErrorHint, "check plex.url and plex.token connectivity"))
		return
	}

	p.sweep(tickID, sessions)

	for _, session := range sessions {
		if err := p.handleSession(ctx, session, policy); err != nil {
			p.logger.Error("session evaluation failed",
				logging.Error(err),
				logging.String(logging.FieldTickID, tickID),
				logging.String(logging.FieldSessionID, session.SessionID),
				logging.String(logging.FieldMediaID, session.MediaID))
		}
	}
}

// sweep forgets sessions that have been absent from the session list for
// idleSweeps consecutive ticks.
func (p *Poller) sweep(tickID string, sessions []playback.Session) {
	reported := make(map[string]struct{}, len(sessions))
	for _, session := range sessions {
		reported[session.SessionID] = struct{}{}
		delete(p.missed, session.SessionID)
	}

	keep := make(map[string]struct{}, len(reported))
	for id := range reported {
		keep[id] = struct{}{}
	}
	for _, state := range p.tracker.Snapshot() {
		if _, ok := reported[state.SessionID]; ok {
			continue
		}
		p.missed[state.SessionID]++
		if p.missed[state.SessionID] < p.idleSweeps {
			keep[state.SessionID] = struct{}{}
		}
	}

	if removed := p.tracker.Sweep(keep); removed > 0 {
		for id := range p.missed {
			if _, ok := keep[id]; !ok {
				delete(p.missed, id)
			}
		}
		p.logger.Debug("swept ended sessions",
			logging.Int("removed", removed),
			logging.String(logging.FieldTickID, tickID))
	}
}

func (p *Poller) handleSession(ctx context.Context, session playback.Session, policy scores.Policy) error {
	p.tracker.Observe(session)

	segments, err := p.store.ActiveSegments(ctx, session.MediaID, session.Position)
	if err != nil {
		return err
	}

	qualifying := segments[:0:0]
	for _, seg := range segments {
		if scores.ShouldFilter(seg, policy) {
			qualifying = append(qualifying, seg)
		}
	}

	winner, ok := scores.PickWinner(qualifying)
	active, filtering := p.tracker.Active(session.SessionID)

	switch {
	case !ok && filtering:
		// Exit is silent: the position left the segment, or a policy change
		// disqualified it.
		p.tracker.ClearActive(session.SessionID)
		p.logger.Debug("session left filtered segment",
			logging.String(logging.FieldSessionID, session.SessionID),
			logging.String(logging.FieldMediaID, session.MediaID),
			logging.Float64("position", session.Position))
	case ok && (!filtering || !winner.Same(active)):
		// Entry edge: transition before dispatching so a failed command is
		// never retried on the next tick.
		p.tracker.SetActive(session.SessionID, winner)
		categories := scores.ActiveCategories(winner, policy)
		p.logger.Info("session entered filtered segment",
			logging.String(logging.FieldSessionID, session.SessionID),
			logging.String(logging.FieldMediaID, session.MediaID),
			logging.Float64("position", session.Position),
			logging.Float64("segment_start", winner.Start),
			logging.Float64("segment_end", winner.End),
			logging.String("action", string(winner.Action)),
			logging.Any("categories", categories),
			logging.String(logging.FieldEventType, "filter_triggered"))
		// Dispatch outcome is logged by the dispatcher; the transition above
		// stands either way.
		_ = p.dispatcher.Dispatch(ctx, session, winner, categories, policy.Feedback)
	}
	return nil
}
