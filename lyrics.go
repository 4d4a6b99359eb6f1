package main

import (
	"sort"
	"time"
)

// LyricLine is a single timed line of lyrics
type LyricLine struct {
	Timestamp time.Duration
	Text      string
}

// Lyrics is a parsed, time-synchronized lyrics document.
// Lines are always sorted ascending by Timestamp.
type Lyrics struct {
	Lines    []LyricLine
	Offset   int64 // Declared offset in milliseconds, already applied to Lines
	Metadata map[string]string
}

// Len returns the number of timed lines
func (l *Lyrics) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Lines)
}

// IndexAt returns the index of the line that is active at pos: the last line
// whose timestamp is <= pos. Returns -1 when pos is before the first line.
func (l *Lyrics) IndexAt(pos time.Duration) int {
	if l.Len() == 0 {
		return -1
	}
	// First line strictly after pos, minus one
	return sort.Search(len(l.Lines), func(i int) bool {
		return l.Lines[i].Timestamp > pos
	}) - 1
}

// Window returns the lines surrounding the active line at pos, along with the
// index of the active line within the returned slice (-1 if none is active yet).
func (l *Lyrics) Window(pos time.Duration, before, after int) ([]LyricLine, int) {
	if l.Len() == 0 {
		return nil, -1
	}

	current := l.IndexAt(pos)
	anchor := current
	if anchor < 0 {
		anchor = 0
	}

	start := anchor - before
	if start < 0 {
		start = 0
	}
	end := anchor + after + 1
	if end > len(l.Lines) {
		end = len(l.Lines)
	}

	if current < 0 {
		return l.Lines[start:end], -1
	}
	return l.Lines[start:end], current - start
}

// Title returns the [ti:] metadata tag, if present
func (l *Lyrics) Title() string {
	return l.meta("ti")
}

// Artist returns the [ar:] metadata tag, if present
func (l *Lyrics) Artist() string {
	return l.meta("ar")
}

func (l *Lyrics) meta(key string) string {
	if l == nil || l.Metadata == nil {
		return ""
	}
	return l.Metadata[key]
}
