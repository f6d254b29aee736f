// Package plex is the HTTP client for the media server's session and player
// command APIs: listing active playback sessions and issuing seek and mute
// commands to the owning clients.
package plex
