package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/sourcegraph/conc/panics"
	"github.com/spf13/afero"
)

// audioExtensions are the files the local provider reads embedded lyrics from
var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
}

// localProvider finds lyrics in a directory: "<Artist> - <Title>.lrc" or
// "<Title>.lrc" first, then embedded lyrics in an audio file of the same name
type localProvider struct {
	fs       afero.Fs
	dir      string
	priority int
}

func newLocalProvider(fsys afero.Fs, dir string, priority int) *localProvider {
	return &localProvider{fs: fsys, dir: dir, priority: priority}
}

func (p *localProvider) Name() string { return "local" }

func (p *localProvider) Priority() int { return p.priority }

func (p *localProvider) Attempt(ctx context.Context, track Track) (*Lyrics, error) {
	if p.dir == "" || track.Name == "" {
		return nil, ErrLyricsNotFound
	}

	entries, err := afero.ReadDir(p.fs, p.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrLyricsNotFound
		}
		return nil, fmt.Errorf("failed to read lyrics directory: %w", err)
	}

	// Stems in preference order: "Artist - Title" before "Title"
	var stems []string
	if track.Artist != "" {
		stems = append(stems, normalizeLookup(track.Artist+" - "+track.Name))
	}
	stems = append(stems, normalizeLookup(track.Name))

	lrcFiles := make(map[string]string)
	audioFiles := make(map[string][]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		stem := normalizeLookup(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		path := filepath.Join(p.dir, e.Name())
		switch {
		case ext == ".lrc":
			lrcFiles[stem] = path
		case audioExtensions[ext]:
			audioFiles[stem] = append(audioFiles[stem], path)
		}
	}

	// A broken .lrc is reported only if no audio file has lyrics either
	var parseErr error
	for _, stem := range stems {
		path, ok := lrcFiles[stem]
		if !ok {
			continue
		}
		data, err := afero.ReadFile(p.fs, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
		}
		lyrics, err := parseLRC(string(data))
		if err == nil && lyrics.Len() > 0 {
			return lyrics, nil
		}
		if err != nil && parseErr == nil {
			parseErr = fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}

	for _, stem := range stems {
		for _, path := range audioFiles[stem] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			lyrics, err := p.embedded(path)
			if err == nil && lyrics.Len() > 0 {
				return lyrics, nil
			}
			if err != nil {
				logger.WithField("file", path).WithError(err).Debug("no embedded lyrics")
			}
		}
	}

	if parseErr != nil {
		return nil, parseErr
	}
	return nil, ErrLyricsNotFound
}

// embedded reads the lyrics tag of an audio file.
// The tag reader can panic on truncated files, which is reported as an error.
func (p *localProvider) embedded(path string) (*Lyrics, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m tag.Metadata
	var pc panics.Catcher
	pc.Try(func() {
		m, err = tag.ReadFrom(f)
	})
	if r := pc.Recovered(); r != nil {
		return nil, fmt.Errorf("failed to read tags: %w", r.AsError())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}
	text := m.Lyrics()
	if strings.TrimSpace(text) == "" {
		return nil, ErrLyricsNotFound
	}
	return parseLRC(text)
}
