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

const neteaseBaseURL = "https://music.163.com"

// neteaseProvider searches NetEase Cloud Music and fetches the best match's LRC
type neteaseProvider struct {
	client   *http.Client
	baseURL  string
	priority int
}

type neteaseSearchResponse struct {
	Code   int `json:"code"`
	Result struct {
		Songs []struct {
			ID      int64  `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"songs"`
	} `json:"result"`
}

type neteaseLyricResponse struct {
	Code int `json:"code"`
	Lrc  struct {
		Lyric string `json:"lyric"`
	} `json:"lrc"`
}

func newNeteaseProvider(client *http.Client, priority int) *neteaseProvider {
	return &neteaseProvider{client: client, baseURL: neteaseBaseURL, priority: priority}
}

func (p *neteaseProvider) Name() string { return "netease" }

func (p *neteaseProvider) Priority() int { return p.priority }

func (p *neteaseProvider) Attempt(ctx context.Context, track Track) (*Lyrics, error) {
	if track.Name == "" {
		return nil, ErrLyricsNotFound
	}

	id, err := p.search(ctx, track)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("id", strconv.FormatInt(id, 10))
	q.Set("lv", "1")
	data, err := httpGet(ctx, p.client, p.base()+"/api/song/lyric?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp neteaseLyricResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode netease lyric response: %w", err)
	}
	if strings.TrimSpace(resp.Lrc.Lyric) == "" {
		return nil, ErrLyricsNotFound
	}

	return parseLRC(resp.Lrc.Lyric)
}

// search returns the ID of the first song matching the track
func (p *neteaseProvider) search(ctx context.Context, track Track) (int64, error) {
	q := url.Values{}
	q.Set("s", strings.TrimSpace(track.Name+" "+track.Artist))
	q.Set("type", "1")
	q.Set("limit", "1")
	data, err := httpGet(ctx, p.client, p.base()+"/api/search/get?"+q.Encode())
	if err != nil {
		return 0, err
	}

	var resp neteaseSearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("failed to decode netease search response: %w", err)
	}
	if len(resp.Result.Songs) == 0 {
		return 0, ErrLyricsNotFound
	}
	return resp.Result.Songs[0].ID, nil
}

func (p *neteaseProvider) base() string {
	return strings.TrimRight(p.baseURL, "/")
}
