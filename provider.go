package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/panics"
	"github.com/spf13/afero"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ErrLyricsNotFound is the normal outcome for a track nobody has lyrics for
var ErrLyricsNotFound = fmt.Errorf("lyrics %w", ErrNotFound)

// LyricsProvider is a single lyrics lookup strategy.
// Attempt returns an error wrapping ErrNotFound (or a network error) when it
// simply has nothing for the track; any other error is treated as a provider fault.
type LyricsProvider interface {
	Name() string
	Priority() int // Lower tries first
	Attempt(ctx context.Context, track Track) (*Lyrics, error)
}

// lyricsChain tries registered providers in ascending priority order
type lyricsChain struct {
	providers []LyricsProvider
}

// Register adds p, keeping the chain ordered by priority.
// Providers with equal priority keep their registration order.
func (c *lyricsChain) Register(p LyricsProvider) {
	c.providers = append(c.providers, p)
	sort.SliceStable(c.providers, func(i, j int) bool {
		return c.providers[i].Priority() < c.providers[j].Priority()
	})
}

// Providers returns the registered providers in lookup order
func (c *lyricsChain) Providers() []LyricsProvider {
	return append([]LyricsProvider(nil), c.providers...)
}

// Lookup returns the first non-empty document found for track.
// It returns ErrLyricsNotFound if no provider has lyrics, or ctx.Err() if cancelled.
func (c *lyricsChain) Lookup(ctx context.Context, track Track) (*Lyrics, error) {
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := logger.WithFields(logrus.Fields{
			"provider": p.Name(),
			"track":    track.Name,
			"artist":   track.Artist,
		})

		lyrics, err := attempt(ctx, p, track)
		switch {
		case err == nil && lyrics.Len() > 0:
			entry.WithField("lines", lyrics.Len()).Debug("lyrics found")
			return lyrics, nil
		case err == nil:
			entry.Debug("provider returned empty lyrics")
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			return nil, ctx.Err()
		case isRecoverable(err):
			entry.WithError(err).Debug("provider has no lyrics")
		default:
			entry.WithError(err).Warn("lyrics provider failed")
		}
	}
	return nil, ErrLyricsNotFound
}

// attempt runs one provider and reports a panic as an error
func attempt(ctx context.Context, p LyricsProvider, track Track) (lyrics *Lyrics, err error) {
	var pc panics.Catcher
	pc.Try(func() {
		lyrics, err = p.Attempt(ctx, track)
	})
	if r := pc.Recovered(); r != nil {
		return nil, r.AsError()
	}
	return lyrics, err
}

// normalizeLookup folds case and Unicode composition so that equivalent
// spellings of a title compare equal. Casers are stateful, so one is made per call.
func normalizeLookup(s string) string {
	return strings.TrimSpace(cases.Fold().String(norm.NFC.String(s)))
}

// lyricsIdentity is the lookup identity of a track's lyrics
func lyricsIdentity(track *Track) string {
	if track == nil || track.Name == "" {
		return ""
	}
	return normalizeLookup(track.Name) + "|" + normalizeLookup(track.Artist)
}

// newLyricsChain registers the configured providers. Earlier names in
// lyrics.providers are tried first.
func newLyricsChain(cfg Config, client *http.Client, fsys afero.Fs) *lyricsChain {
	chain := &lyricsChain{}
	for i, name := range cfg.Lyrics.Providers {
		priority := (i + 1) * 10
		switch strings.ToLower(name) {
		case "local":
			chain.Register(newLocalProvider(fsys, lyricsDir(cfg), priority))
		case "lrclib":
			chain.Register(newLRCLibProvider(client, priority))
		case "netease":
			chain.Register(newNeteaseProvider(client, priority))
		}
	}
	return chain
}

// lyricsDir is lyrics.local_dir, or ~/Music when unset
func lyricsDir(cfg Config) string {
	if cfg.Lyrics.LocalDir != "" {
		return cfg.Lyrics.LocalDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Music")
}
