package plex

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"veil/internal/config"
	"veil/internal/playback"
)

const userAgent = "Veil/0.1.0"

// ErrUnsupported reports that the target client cannot execute the requested
// player command. Callers use it to fall back to another action.
var ErrUnsupported = errors.New("player command unsupported by client")

// Client talks to the Plex server's session and player command endpoints.
type Client struct {
	baseURL string
	token   string
	// clientID identifies this controller to the server; generated once per
	// process as player commands require a stable identifier.
	clientID string
	http     *http.Client
}

// NewClient builds a client from the Plex connection settings.
func NewClient(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Plex.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.Plex.URL), "/"),
		token:    strings.TrimSpace(cfg.Plex.Token),
		clientID: strings.ReplaceAll(uuid.New().String(), "-", ""),
		http:     &http.Client{Timeout: timeout},
	}
}

type sessionPlayer struct {
	MachineIdentifier    string `xml:"machineIdentifier,attr"`
	Product              string `xml:"product,attr"`
	State                string `xml:"state,attr"`
	ProtocolCapabilities string `xml:"protocolCapabilities,attr"`
}

type sessionDetail struct {
	ID string `xml:"id,attr"`
}

type sessionVideo struct {
	SessionKey string        `xml:"sessionKey,attr"`
	RatingKey  string        `xml:"ratingKey,attr"`
	Title      string        `xml:"title,attr"`
	ViewOffset string        `xml:"viewOffset,attr"`
	Player     sessionPlayer `xml:"Player"`
	Session    sessionDetail `xml:"Session"`
}

type sessionContainer struct {
	Videos []sessionVideo `xml:"Video"`
}

// ListSessions returns the currently active playback sessions. Sessions
// without a media key or a usable playback position are skipped; they
// cannot be evaluated against stored segments.
func (c *Client) ListSessions(ctx context.Context) ([]playback.Session, error) {
	req, err := c.newRequest(ctx, c.baseURL+"/status/sessions", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sessions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, httpError("sessions", resp)
	}

	var container sessionContainer
	if err := xml.NewDecoder(resp.Body).Decode(&container); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}

	sessions := make([]playback.Session, 0, len(container.Videos))
	for _, video := range container.Videos {
		sessionID := strings.TrimSpace(video.Session.ID)
		if sessionID == "" {
			sessionID = strings.TrimSpace(video.SessionKey)
		}
		if sessionID == "" || strings.TrimSpace(video.RatingKey) == "" {
			continue
		}
		offsetMS, err := strconv.ParseInt(strings.TrimSpace(video.ViewOffset), 10, 64)
		if err != nil {
			// No usable position means the session cannot be evaluated
			// this tick; defaulting to 0 could land inside a segment that
			// starts at the top of the file and trigger a spurious skip.
			continue
		}
		sessions = append(sessions, playback.Session{
			SessionID: sessionID,
			MediaID:   strings.TrimSpace(video.RatingKey),
			Title:     strings.TrimSpace(video.Title),
			ClientID:  strings.TrimSpace(video.Player.MachineIdentifier),
			Player:    strings.TrimSpace(video.Player.Product),
			Position:  float64(offsetMS) / 1000,
			CanMute:   strings.Contains(video.Player.ProtocolCapabilities, "volume"),
		})
	}
	return sessions, nil
}

// Seek commands the session's client to jump to offsetSeconds.
func (c *Client) Seek(ctx context.Context, session playback.Session, offsetSeconds float64) error {
	if strings.TrimSpace(session.ClientID) == "" {
		return fmt.Errorf("session %s: %w", session.SessionID, ErrUnsupported)
	}
	params := url.Values{}
	params.Set("type", "video")
	params.Set("offset", strconv.FormatInt(int64(offsetSeconds*1000), 10))
	return c.playerCommand(ctx, session, "/player/playback/seekTo", params)
}

// SetMuted commands the session's client to mute or unmute. Clients that do
// not advertise volume control report ErrUnsupported.
func (c *Client) SetMuted(ctx context.Context, session playback.Session, muted bool) error {
	if strings.TrimSpace(session.ClientID) == "" || !session.CanMute {
		return fmt.Errorf("session %s: %w", session.SessionID, ErrUnsupported)
	}
	params := url.Values{}
	if muted {
		params.Set("mute", "1")
	} else {
		params.Set("mute", "0")
	}
	return c.playerCommand(ctx, session, "/player/playback/setParameters", params)
}

func (c *Client) playerCommand(ctx context.Context, session playback.Session, path string, params url.Values) error {
	req, err := c.newRequest(ctx, c.baseURL+path, params)
	if err != nil {
		return err
	}
	req.Header.Set("X-Plex-Target-Client-Identifier", session.ClientID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("player command %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNotImplemented {
		return fmt.Errorf("player command %s returned %d: %w", path, resp.StatusCode, ErrUnsupported)
	}
	if resp.StatusCode >= 300 {
		return httpError(path, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) newRequest(ctx context.Context, rawURL string, params url.Values) (*http.Request, error) {
	if len(params) > 0 {
		rawURL = rawURL + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("X-Plex-Token", c.token)
	}
	req.Header.Set("X-Plex-Client-Identifier", c.clientID)
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

func httpError(label string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("plex %s returned %d: %s", label, resp.StatusCode, strings.TrimSpace(string(body)))
}
