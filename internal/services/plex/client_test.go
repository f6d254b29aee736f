package plex_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"veil/internal/playback"
	"veil/internal/services/plex"
	"veil/internal/testsupport"
)

const sessionsXML = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer size="4">
  <Video sessionKey="12" ratingKey="4921" title="Example Movie" viewOffset="121000">
    <Player machineIdentifier="client-abc" product="Plex Web" state="playing" protocolCapabilities="timeline,playback,navigation,volume"/>
    <Session id="sess-1"/>
  </Video>
  <Video sessionKey="13" ratingKey="" title="No Media Key" viewOffset="5000">
    <Player machineIdentifier="client-def" product="Plex for TV" state="paused"/>
  </Video>
  <Video sessionKey="14" ratingKey="777" title="No Offset">
    <Player machineIdentifier="client-ghi" product="Plex Web" state="buffering"/>
    <Session id="sess-3"/>
  </Video>
  <Video sessionKey="15" ratingKey="778" title="Garbled Offset" viewOffset="not-a-number">
    <Player machineIdentifier="client-jkl" product="Plex Web" state="playing"/>
    <Session id="sess-4"/>
  </Video>
</MediaContainer>`

func newTestClient(t *testing.T, handler http.Handler) (*plex.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Plex.URL = server.URL
	cfg.Plex.Token = "token-123"
	return plex.NewClient(cfg), server
}

func TestListSessionsParsesVideos(t *testing.T) {
	var gotToken, gotPath string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Plex-Token")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(sessionsXML))
	}))

	sessions, err := client.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if gotPath != "/status/sessions" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotToken != "token-123" {
		t.Fatalf("expected token header, got %q", gotToken)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected entries without a media key or playback position skipped, got %d sessions", len(sessions))
	}

	got := sessions[0]
	want := playback.Session{
		SessionID: "sess-1",
		MediaID:   "4921",
		Title:     "Example Movie",
		ClientID:  "client-abc",
		Player:    "Plex Web",
		Position:  121,
		CanMute:   true,
	}
	if got != want {
		t.Fatalf("unexpected session:\n got %+v\nwant %+v", got, want)
	}
}

func TestSeekSendsPlayerCommand(t *testing.T) {
	var gotTarget, gotOffset, gotPath string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTarget = r.Header.Get("X-Plex-Target-Client-Identifier")
		gotOffset = r.URL.Query().Get("offset")
		w.WriteHeader(http.StatusOK)
	}))

	session := playback.Session{SessionID: "sess-1", ClientID: "client-abc"}
	if err := client.Seek(context.Background(), session, 135); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if gotPath != "/player/playback/seekTo" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotTarget != "client-abc" {
		t.Fatalf("expected target client header, got %q", gotTarget)
	}
	if gotOffset != "135000" {
		t.Fatalf("expected millisecond offset 135000, got %q", gotOffset)
	}
}

func TestSeekWithoutClientIDIsUnsupported(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	err := client.Seek(context.Background(), playback.Session{SessionID: "sess-1"}, 10)
	if !errors.Is(err, plex.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestSetMutedRequiresCapability(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	incapable := playback.Session{SessionID: "sess-1", ClientID: "client-abc", CanMute: false}
	if err := client.SetMuted(context.Background(), incapable, true); !errors.Is(err, plex.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for incapable client, got %v", err)
	}

	capable := playback.Session{SessionID: "sess-1", ClientID: "client-abc", CanMute: true}
	if err := client.SetMuted(context.Background(), capable, true); err != nil {
		t.Fatalf("SetMuted failed: %v", err)
	}
}

func TestPlayerCommandMapsNotFoundToUnsupported(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	session := playback.Session{SessionID: "sess-1", ClientID: "client-abc", CanMute: true}
	if err := client.SetMuted(context.Background(), session, true); !errors.Is(err, plex.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for 404, got %v", err)
	}
}
