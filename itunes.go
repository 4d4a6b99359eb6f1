package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	itunesBaseURL = "https://itunes.apple.com"
	itunesTimeout = 3 * time.Second
	// A failed search is retried for the same track only after this long
	itunesRetryAfter = 30 * time.Second
)

// itunesClient finds cover art through the iTunes Search API.
// The last answer is remembered so a poll loop doesn't search every second.
// Failures are remembered too, until itunesRetryAfter has passed.
type itunesClient struct {
	client  *http.Client
	baseURL string
	now     func() time.Time

	mu       sync.Mutex
	lastKey  string
	lastURL  string
	lastErr  error
	failedAt time.Time
}

func newITunesClient(client *http.Client) *itunesClient {
	return &itunesClient{client: client, baseURL: itunesBaseURL, now: time.Now}
}

type itunesSearchResponse struct {
	Results []struct {
		ArtworkURL100 string `json:"artworkUrl100"`
	} `json:"results"`
}

// ArtworkURL returns a 600x600 artwork URL for track, or "" if the store has none
func (c *itunesClient) ArtworkURL(ctx context.Context, track Track) (string, error) {
	if track.Name == "" {
		return "", nil
	}

	key := lyricsIdentity(&track)
	c.mu.Lock()
	if key == c.lastKey && (c.lastErr == nil || c.now().Sub(c.failedAt) < itunesRetryAfter) {
		cached, cachedErr := c.lastURL, c.lastErr
		c.mu.Unlock()
		return cached, cachedErr
	}
	c.mu.Unlock()

	artURL, err := c.search(ctx, track)
	if ctx.Err() != nil {
		// Cancelled by the caller, not an answer about this track
		return artURL, err
	}

	c.mu.Lock()
	c.lastKey, c.lastURL, c.lastErr = key, artURL, err
	if err != nil {
		c.failedAt = c.now()
	}
	c.mu.Unlock()
	return artURL, err
}

func (c *itunesClient) search(ctx context.Context, track Track) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, itunesTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("term", strings.TrimSpace(track.Artist+" "+track.Name))
	q.Set("entity", "song")
	q.Set("limit", "1")

	body, err := httpGet(ctx, c.client, c.baseURL+"/search?"+q.Encode())
	if err != nil {
		return "", fmt.Errorf("itunes search failed: %w", err)
	}

	var resp itunesSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode itunes response: %w", err)
	}

	if len(resp.Results) == 0 {
		return "", nil
	}
	return strings.Replace(resp.Results[0].ArtworkURL100, "100x100bb", "600x600bb", 1), nil
}
