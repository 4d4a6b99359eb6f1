//go:build linux
// +build linux

package main

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// playerctlFormat asks for everything a status poll needs in one call.
// Tabs separate fields so that "|" in album names survives.
const playerctlFormat = "{{status}}\t{{title}}\t{{artist}}\t{{album}}\t{{mpris:length}}\t{{position}}\t{{volume}}\t{{shuffle}}\t{{loop}}"

// PlayerctlController implements MediaController using playerctl for Linux
type PlayerctlController struct {
	run    func(ctx context.Context, args ...string) (string, error)
	itunes *itunesClient // Fallback when the player exports no art
}

func newNativeController(cfg Config) MediaController {
	return &PlayerctlController{
		run:    runPlayerctl,
		itunes: newITunesClient(newHTTPClient(requestTimeout(cfg))),
	}
}

func runPlayerctl(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "playerctl", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("playerctl %s failed: %w", strings.Join(args, " "), err)
	}
	return trimPlayerctlOutput(out.String()), nil
}

// trimPlayerctlOutput drops the trailing newline only. Tabs are kept,
// since empty trailing fields are still fields.
func trimPlayerctlOutput(s string) string {
	return strings.TrimRight(s, "\r\n")
}

func (p *PlayerctlController) Status(ctx context.Context) (PlayerStatus, error) {
	out, err := p.run(ctx, "metadata", "--format", playerctlFormat)
	if err != nil || out == "" {
		// No player running or nothing loaded
		return PlayerStatus{}, ErrNothingPlaying
	}
	return parsePlayerctlStatus(out)
}

// parsePlayerctlStatus parses one line of playerctlFormat output
func parsePlayerctlStatus(line string) (PlayerStatus, error) {
	parts := strings.Split(line, "\t")
	if len(parts) != 9 {
		return PlayerStatus{}, fmt.Errorf("unexpected metadata format: got %d parts, expected 9", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	status := PlayerStatus{
		State:   normalizeState(parts[0]),
		Volume:  -1,
		Shuffle: parts[7] == "true",
		Repeat:  strings.ToLower(parts[8]),
	}
	if parts[1] == "" {
		return status, ErrNothingPlaying
	}

	track := &Track{Name: parts[1], Artist: parts[2], Album: parts[3]}
	// Length and position are in microseconds
	if us, err := strconv.ParseInt(parts[4], 10, 64); err == nil {
		track.Duration = time.Duration(us) * time.Microsecond
	}
	if us, err := strconv.ParseInt(parts[5], 10, 64); err == nil {
		track.Position = time.Duration(us) * time.Microsecond
	}
	if v, err := strconv.ParseFloat(parts[6], 64); err == nil {
		status.Volume = clampVolume(int(v*100 + 0.5))
	}
	status.Track = track
	return status, nil
}

func (p *PlayerctlController) Control(command string) error {
	ctx := context.Background()
	switch command {
	case cmdPlayPause, cmdNext, cmdPrevious:
		_, err := p.run(ctx, command)
		return err
	case cmdShuffle:
		_, err := p.run(ctx, "shuffle", "Toggle")
		return err
	case cmdRepeat:
		current, err := p.run(ctx, "loop")
		if err != nil {
			return err
		}
		_, err = p.run(ctx, "loop", nextLoopStatus(current))
		return err
	}
	return fmt.Errorf("unknown command: %s", command)
}

// nextLoopStatus cycles None -> Playlist -> Track -> None
func nextLoopStatus(current string) string {
	switch strings.ToLower(strings.TrimSpace(current)) {
	case "none":
		return "Playlist"
	case "playlist":
		return "Track"
	default:
		return "None"
	}
}

func (p *PlayerctlController) SetVolume(pct int) error {
	vol := float64(clampVolume(pct)) / 100
	_, err := p.run(context.Background(), "volume", strconv.FormatFloat(vol, 'f', 2, 64))
	return err
}

func (p *PlayerctlController) Seek(delta time.Duration) error {
	sign := "+"
	if delta < 0 {
		sign = "-"
		delta = -delta
	}
	secs := strconv.FormatFloat(delta.Seconds(), 'f', -1, 64)
	_, err := p.run(context.Background(), "position", secs+sign)
	return err
}

func (p *PlayerctlController) ArtworkURL(ctx context.Context, track Track) (string, error) {
	// Players without art report the key as missing
	out, err := p.run(ctx, "metadata", "mpris:artUrl")
	out = strings.TrimSpace(out)
	if err == nil && out != "" {
		return out, nil
	}
	if p.itunes == nil {
		return "", nil
	}
	return p.itunes.ArtworkURL(ctx, track)
}
