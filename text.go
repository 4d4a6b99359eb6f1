package main

import (
	"fmt"
	"hash/maphash"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// scrollSeparator is appended to scrolling text so the loop reads smoothly
const scrollSeparator = "  •  "

// formatTime converts seconds to MM:SS format
func formatTime(seconds int64) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// formatDuration converts a duration to MM:SS format
func formatDuration(d time.Duration) string {
	return formatTime(int64(d / time.Second))
}

// scrollText returns a window of text that is width cells wide, starting at
// offset runes into the looping text. Text that already fits is returned unchanged.
func scrollText(text string, width int, offset int) string {
	if runewidth.StringWidth(text) <= width {
		return text
	}

	fullText := append([]rune(text), []rune(scrollSeparator)...)
	textLen := len(fullText)
	offset = offset % textLen
	if offset < 0 {
		offset += textLen
	}

	var result strings.Builder
	used := 0
	for i := 0; used < width; i++ {
		r := fullText[(offset+i)%textLen]
		w := runewidth.RuneWidth(r)
		if used+w > width {
			// A wide rune would overflow the window
			result.WriteString(strings.Repeat(" ", width-used))
			break
		}
		result.WriteRune(r)
		used += w
	}
	return result.String()
}

// scrollLoopLength is the number of scroll steps before text repeats
func scrollLoopLength(text string) int {
	return len([]rune(text)) + len([]rune(scrollSeparator))
}

type scrollKey struct {
	field int
	width int
}

type scrollEntry struct {
	hash uint64
	text string
}

// scrollCache memoizes scrolled renderings of long text fields between frames.
// Entries are keyed by (field, width); the whole cache is dropped when the
// frame changes, and an entry is reused only if its source text is unchanged.
type scrollCache struct {
	seed    maphash.Seed
	frame   int
	entries map[scrollKey]scrollEntry
}

func newScrollCache() *scrollCache {
	return &scrollCache{
		seed:    maphash.MakeSeed(),
		entries: make(map[scrollKey]scrollEntry),
	}
}

// Render returns text scrolled to frame within width cells
func (c *scrollCache) Render(field, width, frame int, text string) string {
	if runewidth.StringWidth(text) <= width {
		return text
	}

	if frame != c.frame {
		clear(c.entries)
		c.frame = frame
	}

	key := scrollKey{field: field, width: width}
	h := maphash.String(c.seed, text)
	if e, ok := c.entries[key]; ok && e.hash == h {
		return e.text
	}

	out := scrollText(text, width, frame)
	c.entries[key] = scrollEntry{hash: h, text: out}
	return out
}
