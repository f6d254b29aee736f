package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"veil/internal/config"
	"veil/internal/logging"
	"veil/internal/notifications"
	"veil/internal/playback"
	"veil/internal/scores"
	"veil/internal/services/plex"
)

// PlayerController issues playback commands to a live session's client.
type PlayerController interface {
	Seek(ctx context.Context, session playback.Session, offsetSeconds float64) error
	SetMuted(ctx context.Context, session playback.Session, muted bool) error
}

// Dispatcher applies a segment's corrective action to a playback session.
// Each call is bounded by the configured dispatch timeout and never retried.
type Dispatcher struct {
	player   PlayerController
	notifier notifications.Service
	logger   *slog.Logger
	timeout  time.Duration
}

// NewDispatcher builds a dispatcher from the monitor configuration.
func NewDispatcher(cfg *config.Config, player PlayerController, notifier notifications.Service, logger *slog.Logger) *Dispatcher {
	timeout := time.Duration(cfg.Monitor.DispatchTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if notifier == nil {
		notifier = notifications.NewService(&config.Config{})
	}
	return &Dispatcher{
		player:   player,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "dispatch"),
		timeout:  timeout,
	}
}

// Dispatch applies segment's action to session. The returned error reports
// the command outcome for the caller's log line; the session state machine
// has already transitioned and must not be rolled back on failure.
func (d *Dispatcher) Dispatch(ctx context.Context, session playback.Session, segment scores.Segment, categories []string, feedback bool) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	action := segment.Action
	var err error
	switch action {
	case scores.ActionMute:
		err = d.player.SetMuted(ctx, session, true)
		if errors.Is(err, plex.ErrUnsupported) {
			d.logger.Debug("client cannot mute, falling back to skip",
				logging.String(logging.FieldSessionID, session.SessionID),
				logging.String("player", session.Player))
			action = scores.ActionSkip
			err = d.player.Seek(ctx, session, segment.End)
		}
	default:
		err = d.player.Seek(ctx, session, segment.End)
	}
	if err != nil {
		attrs := []logging.Attr{
			logging.Error(err),
			logging.String(logging.FieldSessionID, session.SessionID),
			logging.String(logging.FieldMediaID, session.MediaID),
			logging.String("action", string(action)),
			logging.String(logging.FieldErrorHint, "check that the client is reachable and controllable"),
			logging.String(logging.FieldImpact, "segment plays unfiltered"),
		}
		d.logger.Error("dispatch failed", logging.Args(attrs...)...)
		if notifyErr := d.notifier.NotifyError(ctx, err, "dispatch"); notifyErr != nil {
			d.logger.Debug("error notification failed", logging.Error(notifyErr))
		}
		return err
	}

	d.logger.Info("corrective action dispatched",
		logging.String(logging.FieldSessionID, session.SessionID),
		logging.String(logging.FieldMediaID, session.MediaID),
		logging.String("action", string(action)),
		logging.Float64("segment_start", segment.Start),
		logging.Float64("segment_end", segment.End),
		logging.Any("categories", categories))

	if feedback {
		if notifyErr := d.notifier.NotifyFilterTriggered(ctx, session.Title, action, categories, segment.End); notifyErr != nil {
			d.logger.Debug("filter notification failed", logging.Error(notifyErr))
		}
	}
	return nil
}
