package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Player states reported in PlayerStatus.State
const (
	statePlaying = "playing"
	statePaused  = "paused"
	stateStopped = "stopped"
)

// Transport commands accepted by MediaController.Control
const (
	cmdPlayPause = "play-pause"
	cmdNext      = "next"
	cmdPrevious  = "previous"
	cmdShuffle   = "shuffle"
	cmdRepeat    = "repeat"
)

// ErrNothingPlaying is returned by Status when no player has a current track
var ErrNothingPlaying = errors.New("nothing playing")

// Track is the now-playing track as reported by the player
type Track struct {
	Name     string
	Artist   string
	Album    string
	Duration time.Duration
	Position time.Duration
}

// PlayerStatus is one poll of the player
type PlayerStatus struct {
	Track   *Track
	State   string // playing, paused or stopped
	Volume  int    // 0-100, -1 if unknown
	Shuffle bool
	Repeat  string
}

// Playing reports whether the player is advancing
func (s PlayerStatus) Playing() bool {
	return s.State == statePlaying
}

// MediaController defines the interface for controlling media playback across platforms
type MediaController interface {
	Status(ctx context.Context) (PlayerStatus, error)
	Control(command string) error
	SetVolume(pct int) error
	Seek(delta time.Duration) error
	// ArtworkURL returns an http(s) or file URL for the track's cover, or "" if there is none
	ArtworkURL(ctx context.Context, track Track) (string, error)
}

// NewMediaController creates the controller for the configured backend.
// "auto" uses the platform's native bridge.
func NewMediaController(cfg Config) (MediaController, error) {
	switch strings.ToLower(cfg.Player.Backend) {
	case "", "auto", "native":
		return newNativeController(cfg), nil
	case "spotify":
		c, err := newSpotifyController(cfg.Spotify, requestTimeout(cfg))
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown player backend %q", cfg.Player.Backend)
}

// normalizeState maps the various player state spellings onto our three states
func normalizeState(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "playing", "play":
		return statePlaying
	case "paused", "pause":
		return statePaused
	default:
		return stateStopped
	}
}

// clampVolume keeps a volume percentage within 0-100
func clampVolume(pct int) int {
	return max(0, min(100, pct))
}
