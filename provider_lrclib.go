package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const lrclibBaseURL = "https://lrclib.net"

// lrclibProvider looks up synced lyrics on LRCLIB by exact track signature
type lrclibProvider struct {
	client   *http.Client
	baseURL  string
	priority int
}

type lrclibResponse struct {
	ID           int64   `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

func newLRCLibProvider(client *http.Client, priority int) *lrclibProvider {
	return &lrclibProvider{client: client, baseURL: lrclibBaseURL, priority: priority}
}

func (p *lrclibProvider) Name() string { return "lrclib" }

func (p *lrclibProvider) Priority() int { return p.priority }

func (p *lrclibProvider) Attempt(ctx context.Context, track Track) (*Lyrics, error) {
	if track.Name == "" || track.Artist == "" {
		return nil, ErrLyricsNotFound
	}

	q := url.Values{}
	q.Set("track_name", track.Name)
	q.Set("artist_name", track.Artist)
	if track.Album != "" {
		q.Set("album_name", track.Album)
	}
	if secs := int(track.Duration.Seconds()); secs > 0 {
		q.Set("duration", strconv.Itoa(secs))
	}

	data, err := httpGet(ctx, p.client, strings.TrimRight(p.baseURL, "/")+"/api/get?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp lrclibResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode lrclib response: %w", err)
	}
	if resp.Instrumental || strings.TrimSpace(resp.SyncedLyrics) == "" {
		return nil, ErrLyricsNotFound
	}

	return parseLRC(resp.SyncedLyrics)
}
