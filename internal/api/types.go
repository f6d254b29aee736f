package api

import (
	"time"

	"veil/internal/playback"
	"veil/internal/scores"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ScoreSummary is a one-line view of a stored score record.
type ScoreSummary struct {
	MediaID   string `json:"mediaId"`
	Version   int    `json:"version"`
	Segments  int    `json:"segments"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// SummarizeRecord builds the transport summary for a stored record.
func SummarizeRecord(record *scores.Record) ScoreSummary {
	summary := ScoreSummary{
		MediaID:  record.MediaID,
		Version:  record.Version,
		Segments: len(record.Segments),
	}
	if !record.CreatedAt.IsZero() {
		summary.CreatedAt = record.CreatedAt.Format(dateTimeFormat)
	}
	return summary
}

// ScoreListResponse lists stored score records.
type ScoreListResponse struct {
	Records []ScoreSummary `json:"records"`
}

// ScoreRecordResponse wraps a single full score record.
type ScoreRecordResponse struct {
	Record *scores.Record `json:"record"`
}

// SessionState is the transport view of one tracked playback session.
type SessionState struct {
	SessionID     string          `json:"sessionId"`
	MediaID       string          `json:"mediaId"`
	Title         string          `json:"title,omitempty"`
	Position      float64         `json:"position"`
	Filtering     bool            `json:"filtering"`
	ActiveSegment *scores.Segment `json:"activeSegment,omitempty"`
	UpdatedAt     string          `json:"updatedAt,omitempty"`
}

// FromTrackerState converts a tracker snapshot entry for transport.
func FromTrackerState(state playback.State) SessionState {
	out := SessionState{
		SessionID:     state.SessionID,
		MediaID:       state.MediaID,
		Title:         state.Title,
		Position:      state.LastPosition,
		Filtering:     state.Filtering(),
		ActiveSegment: state.Active,
	}
	if !state.UpdatedAt.IsZero() {
		out.UpdatedAt = state.UpdatedAt.Format(dateTimeFormat)
	}
	return out
}

// SessionListResponse lists live playback sessions.
type SessionListResponse struct {
	Sessions []SessionState `json:"sessions"`
}

// DaemonStatus summarizes daemon runtime state.
type DaemonStatus struct {
	Running           bool   `json:"running"`
	PID               int    `json:"pid"`
	StorePath         string `json:"storePath"`
	LockFilePath      string `json:"lockFilePath"`
	PolicyPath        string `json:"policyPath"`
	ScoreRecords      int    `json:"scoreRecords"`
	TrackedSessions   int    `json:"trackedSessions"`
	FilteringSessions int    `json:"filteringSessions"`
	StartedAt         string `json:"startedAt,omitempty"`
}

// ReloadResponse reports the outcome of a score cache reload.
type ReloadResponse struct {
	Records int `json:"records"`
}

// NotifyTestResponse reports the outcome of a test notification.
type NotifyTestResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// FormatTime renders a timestamp in the API's wire format.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateTimeFormat)
}
