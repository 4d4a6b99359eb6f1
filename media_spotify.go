package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zmb3/spotify"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// spotifyController implements MediaController against the Spotify Web API.
// It works on any OS as long as a Spotify device is active.
type spotifyController struct {
	client spotify.Client

	mu      sync.Mutex
	last    PlayerStatus
	artwork string // Largest album image of the last polled track
}

func newSpotifyController(creds SpotifyConfig, timeout time.Duration) (*spotifyController, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.RefreshToken == "" {
		return nil, errors.New("spotify backend needs client_id, client_secret and refresh_token")
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	// Token refreshes and API calls share the same timeout-bound client
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, newHTTPClient(timeout))
	tokenSource := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	httpClient := oauth2.NewClient(ctx, tokenSource)

	return &spotifyController{client: spotify.NewClient(httpClient)}, nil
}

func (s *spotifyController) Status(ctx context.Context) (PlayerStatus, error) {
	if err := ctx.Err(); err != nil {
		return PlayerStatus{}, err
	}

	state, err := s.client.PlayerState()
	if err != nil {
		return PlayerStatus{}, fmt.Errorf("failed to get spotify player state: %w", err)
	}
	if state == nil || state.Item == nil {
		return PlayerStatus{}, ErrNothingPlaying
	}

	status, artURL := spotifyStatus(state)

	s.mu.Lock()
	s.last = status
	s.artwork = artURL
	s.mu.Unlock()
	return status, nil
}

// spotifyStatus converts a Web API player state into a PlayerStatus and artwork URL
func spotifyStatus(state *spotify.PlayerState) (PlayerStatus, string) {
	item := state.Item

	artists := make([]string, 0, len(item.Artists))
	for _, a := range item.Artists {
		artists = append(artists, a.Name)
	}

	status := PlayerStatus{
		Track: &Track{
			Name:     item.Name,
			Artist:   strings.Join(artists, ", "),
			Album:    item.Album.Name,
			Duration: time.Duration(item.Duration) * time.Millisecond,
			Position: time.Duration(state.Progress) * time.Millisecond,
		},
		State:   statePaused,
		Volume:  clampVolume(state.Device.Volume),
		Shuffle: state.ShuffleState,
		Repeat:  state.RepeatState,
	}
	if state.Playing {
		status.State = statePlaying
	}

	// Images are ordered widest first
	var artURL string
	if len(item.Album.Images) > 0 {
		artURL = item.Album.Images[0].URL
	}
	return status, artURL
}

func (s *spotifyController) snapshot() PlayerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *spotifyController) Control(command string) error {
	last := s.snapshot()
	switch command {
	case cmdPlayPause:
		if last.Playing() {
			return s.client.Pause()
		}
		return s.client.Play()
	case cmdNext:
		return s.client.Next()
	case cmdPrevious:
		return s.client.Previous()
	case cmdShuffle:
		return s.client.Shuffle(!last.Shuffle)
	case cmdRepeat:
		return s.client.Repeat(nextRepeatState(last.Repeat))
	}
	return fmt.Errorf("unknown command: %s", command)
}

// nextRepeatState cycles off -> context -> track -> off
func nextRepeatState(current string) string {
	switch current {
	case "off":
		return "context"
	case "context":
		return "track"
	default:
		return "off"
	}
}

func (s *spotifyController) SetVolume(pct int) error {
	return s.client.Volume(clampVolume(pct))
}

func (s *spotifyController) Seek(delta time.Duration) error {
	last := s.snapshot()
	if last.Track == nil {
		return ErrNothingPlaying
	}
	pos := max(0, last.Track.Position+delta)
	if last.Track.Duration > 0 {
		pos = min(pos, last.Track.Duration)
	}
	return s.client.Seek(int(pos / time.Millisecond))
}

// ArtworkURL returns the album image seen by the last Status call for track
func (s *spotifyController) ArtworkURL(_ context.Context, track Track) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last.Track == nil || s.last.Track.Name != track.Name {
		return "", nil
	}
	return s.artwork, nil
}
