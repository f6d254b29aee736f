package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"log/slog"

	"veil/internal/api"
	"veil/internal/config"
	"veil/internal/logging"
	"veil/internal/scores"
)

const maxScoreRecordBytes = 8 << 20

// APIServer serves the daemon's HTTP API: score record ingestion, session
// views, and administration.
type APIServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

// NewAPIServer builds the API server for a daemon. It returns nil when no
// bind address is configured.
func NewAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *APIServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &APIServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("/api/sessions", authMiddleware(token, srv.handleSessions))
	mux.HandleFunc("/api/scores", authMiddleware(token, srv.handleScoreList))
	mux.HandleFunc("/api/scores/", authMiddleware(token, srv.handleScoreRecord))
	mux.HandleFunc("/api/reload", authMiddleware(token, srv.handleReload))
	mux.HandleFunc("/api/test-notification", authMiddleware(token, srv.handleTestNotification))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Start begins serving on the configured bind address. The server shuts down
// when ctx is cancelled.
func (s *APIServer) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down and closes the listener.
func (s *APIServer) Stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound listen address, or empty before Start.
func (s *APIServer) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *APIServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:           status.Running,
		PID:               status.PID,
		StorePath:         status.StorePath,
		LockFilePath:      status.LockFilePath,
		PolicyPath:        status.PolicyPath,
		ScoreRecords:      status.ScoreRecords,
		TrackedSessions:   status.TrackedSessions,
		FilteringSessions: status.FilteringSessions,
		StartedAt:         api.FormatTime(status.StartedAt),
	})
}

func (s *APIServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	states := s.daemon.Sessions()
	sessions := make([]api.SessionState, 0, len(states))
	for _, state := range states {
		sessions = append(sessions, api.FromTrackerState(state))
	}
	s.writeJSON(w, http.StatusOK, api.SessionListResponse{Sessions: sessions})
}

func (s *APIServer) handleScoreList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	records := s.daemon.ScoreRecords()
	summaries := make([]api.ScoreSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, api.SummarizeRecord(record))
	}
	s.writeJSON(w, http.StatusOK, api.ScoreListResponse{Records: summaries})
}

func (s *APIServer) handleScoreRecord(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/scores/")
	if raw == "" || strings.Contains(raw, "/") {
		s.writeError(w, http.StatusNotFound, "score record not found")
		return
	}
	mediaID, err := url.PathUnescape(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid media id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		record, err := s.daemon.GetScores(r.Context(), mediaID)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if record == nil {
			s.writeError(w, http.StatusNotFound, "score record not found")
			return
		}
		s.writeJSON(w, http.StatusOK, api.ScoreRecordResponse{Record: record})
	case http.MethodPut:
		var record scores.Record
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxScoreRecordBytes))
		if err := decoder.Decode(&record); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("decode score record: %v", err))
			return
		}
		if record.MediaID == "" {
			record.MediaID = mediaID
		}
		if record.MediaID != mediaID {
			s.writeError(w, http.StatusBadRequest, "media id in body does not match URL")
			return
		}
		if err := s.daemon.PutScores(r.Context(), &record); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.SummarizeRecord(&record))
	case http.MethodDelete:
		if err := s.daemon.DeleteScores(r.Context(), mediaID); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *APIServer) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	count, err := s.daemon.ReloadScores(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ReloadResponse{Records: count})
}

func (s *APIServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, message)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NotifyTestResponse{Sent: sent, Message: message})
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *APIServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}
