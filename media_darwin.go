//go:build darwin
// +build darwin

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// AppleScriptController implements MediaController using AppleScript for macOS
// It supports Apple Music and Spotify
type AppleScriptController struct {
	mu            sync.Mutex
	currentPlayer string // Cache the current active player
	itunes        *itunesClient
}

func newNativeController(cfg Config) MediaController {
	return &AppleScriptController{
		itunes: newITunesClient(newHTTPClient(requestTimeout(cfg))),
	}
}

func (a *AppleScriptController) runAppleScript(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

// findActivePlayer checks multiple music applications to find one that's playing
func (a *AppleScriptController) findActivePlayer(ctx context.Context) (string, error) {
	// Supported players in priority order
	for _, player := range []string{"Music", "Spotify"} {
		checkScript := fmt.Sprintf(`
			tell application "System Events"
				if exists (process "%s") then
					tell application "%s"
						if player state is not stopped then
							return "true"
						end if
					end tell
				end if
				return "false"
			end tell`, player, player)

		result, err := a.runAppleScript(ctx, checkScript)
		if err == nil && result == "true" {
			return player, nil
		}
	}

	return "", ErrNothingPlaying
}

// player returns the cached active player, looking it up if needed
func (a *AppleScriptController) player(ctx context.Context) (string, error) {
	a.mu.Lock()
	player := a.currentPlayer
	a.mu.Unlock()
	if player != "" {
		return player, nil
	}
	return a.findActivePlayer(ctx)
}

func (a *AppleScriptController) Status(ctx context.Context) (PlayerStatus, error) {
	player, err := a.findActivePlayer(ctx)
	if err != nil {
		return PlayerStatus{}, err
	}
	a.mu.Lock()
	a.currentPlayer = player
	a.mu.Unlock()

	shuffle, repeat := "shuffle enabled", "song repeat as string"
	if player == "Spotify" {
		shuffle, repeat = "shuffling", "repeating"
	}

	script := fmt.Sprintf(`tell application "%s"
		if player state is stopped then
			error "no song playing"
		end if
		set tab to character id 9
		set t to current track
		return (name of t) & tab & (artist of t) & tab & (album of t) & tab & (player state as string) & tab & (duration of t) & tab & (player position) & tab & (sound volume) & tab & (%s) & tab & (%s)
	end tell`, player, shuffle, repeat)

	output, err := a.runAppleScript(ctx, script)
	if err != nil || output == "" {
		return PlayerStatus{}, ErrNothingPlaying
	}
	return parseAppleScriptStatus(player, output)
}

// parseAppleScriptStatus parses the tab-separated status line.
// Apple Music reports duration in seconds, Spotify in milliseconds.
func parseAppleScriptStatus(player, output string) (PlayerStatus, error) {
	parts := strings.Split(output, "\t")
	if len(parts) != 9 {
		return PlayerStatus{}, errors.New("unexpected metadata format")
	}

	track := &Track{
		Name:   strings.TrimSpace(parts[0]),
		Artist: strings.TrimSpace(parts[1]),
		Album:  strings.TrimSpace(parts[2]),
	}
	// AppleScript may use a comma decimal separator depending on locale
	dur := strings.ReplaceAll(strings.TrimSpace(parts[4]), ",", ".")
	if d, err := strconv.ParseFloat(dur, 64); err == nil {
		if player == "Spotify" {
			track.Duration = time.Duration(d) * time.Millisecond
		} else {
			track.Duration = time.Duration(d * float64(time.Second))
		}
	}
	pos := strings.ReplaceAll(strings.TrimSpace(parts[5]), ",", ".")
	if p, err := strconv.ParseFloat(pos, 64); err == nil {
		track.Position = time.Duration(p * float64(time.Second))
	}

	status := PlayerStatus{
		Track:   track,
		State:   normalizeState(parts[3]),
		Volume:  -1,
		Shuffle: strings.TrimSpace(parts[7]) == "true",
		Repeat:  strings.TrimSpace(parts[8]),
	}
	if v, err := strconv.Atoi(strings.TrimSpace(parts[6])); err == nil {
		status.Volume = clampVolume(v)
	}
	return status, nil
}

func (a *AppleScriptController) tell(command string) error {
	ctx := context.Background()
	player, err := a.player(ctx)
	if err != nil {
		return err
	}
	_, err = a.runAppleScript(ctx, fmt.Sprintf(`tell application "%s" to %s`, player, command))
	return err
}

func (a *AppleScriptController) Control(command string) error {
	player, err := a.player(context.Background())
	if err != nil {
		return err
	}

	switch command {
	case cmdPlayPause:
		return a.tell("playpause")
	case cmdNext:
		return a.tell("next track")
	case cmdPrevious:
		return a.tell("previous track")
	case cmdShuffle:
		if player == "Spotify" {
			return a.tell("set shuffling to not shuffling")
		}
		return a.tell("set shuffle enabled to not shuffle enabled")
	case cmdRepeat:
		if player == "Spotify" {
			return a.tell("set repeating to not repeating")
		}
		_, err := a.runAppleScript(context.Background(), `tell application "Music"
			if song repeat is off then
				set song repeat to all
			else if song repeat is all then
				set song repeat to one
			else
				set song repeat to off
			end if
		end tell`)
		return err
	}
	return fmt.Errorf("unknown command: %s", command)
}

func (a *AppleScriptController) SetVolume(pct int) error {
	return a.tell(fmt.Sprintf("set sound volume to %d", clampVolume(pct)))
}

func (a *AppleScriptController) Seek(delta time.Duration) error {
	return a.tell(fmt.Sprintf("set player position to (player position + %g)", delta.Seconds()))
}

// ArtworkURL asks Spotify for its artwork URL; Apple Music has none, so the
// iTunes Search API is used instead
func (a *AppleScriptController) ArtworkURL(ctx context.Context, track Track) (string, error) {
	player, err := a.player(ctx)
	if err != nil {
		return "", err
	}
	if player == "Spotify" {
		return a.runAppleScript(ctx, `tell application "Spotify" to return artwork url of current track`)
	}
	return a.itunes.ArtworkURL(ctx, track)
}
