package main

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedTimestamp is returned when a timestamp tag has unusable numeric fields.
// The whole document is rejected; callers treat the track as having no lyrics.
var ErrMalformedTimestamp = errors.New("malformed lyrics timestamp")

var (
	// Any bracketed tag at the start of the remaining line
	lrcTagRegex = regexp.MustCompile(`^\[([^\[\]]*)\]`)
	// [mm:ss.cc] / [mm:ss.ccc] - digit counts are validated separately
	lrcTimeRegex = regexp.MustCompile(`^(\d+):(\d+)\.(\d+)$`)
	// [key:value] with a lowercase key
	lrcMetaRegex = regexp.MustCompile(`^([a-z]+):(.*)$`)
)

// parseLRC parses line-timed lyrics text into a Lyrics document
func parseLRC(content string) (*Lyrics, error) {
	lyrics := &Lyrics{Metadata: make(map[string]string)}

	content = strings.TrimPrefix(content, "\ufeff")
	for n, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		var stamps []time.Duration
		rest := line
		for {
			m := lrcTagRegex.FindStringSubmatch(rest)
			if m == nil {
				break
			}
			tag := m[1]

			if tm := lrcTimeRegex.FindStringSubmatch(tag); tm != nil {
				ts, err := parseLRCTimestamp(tm[1], tm[2], tm[3])
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", n+1, err)
				}
				stamps = append(stamps, ts)
			} else if mm := lrcMetaRegex.FindStringSubmatch(tag); mm != nil {
				key, value := mm[1], strings.TrimSpace(mm[2])
				if key == "offset" {
					lyrics.Offset = parseLRCOffset(value)
				} else {
					lyrics.Metadata[key] = value
				}
			} else {
				// Not a tag we understand, so it belongs to the text
				break
			}
			rest = rest[len(m[0]):]
		}

		if len(stamps) == 0 {
			continue
		}
		text := strings.TrimSpace(rest)
		if text == "" {
			continue
		}
		for _, ts := range stamps {
			lyrics.Lines = append(lyrics.Lines, LyricLine{Timestamp: ts, Text: text})
		}
	}

	sort.SliceStable(lyrics.Lines, func(i, j int) bool {
		return lyrics.Lines[i].Timestamp < lyrics.Lines[j].Timestamp
	})

	if lyrics.Offset != 0 {
		shift := time.Duration(lyrics.Offset) * time.Millisecond
		for i := range lyrics.Lines {
			ts := lyrics.Lines[i].Timestamp + shift
			if ts < 0 {
				ts = 0
			}
			lyrics.Lines[i].Timestamp = ts
		}
	}

	return lyrics, nil
}

// parseLRCTimestamp converts the minute, second and fraction fields of a
// timestamp tag into a duration
func parseLRCTimestamp(minStr, secStr, fracStr string) (time.Duration, error) {
	minutes, err := strconv.ParseInt(minStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: minutes %q: %v", ErrMalformedTimestamp, minStr, err)
	}
	sec, err := strconv.ParseInt(secStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: seconds %q: %v", ErrMalformedTimestamp, secStr, err)
	}

	var ms int64
	switch len(fracStr) {
	case 2:
		cs, err := strconv.ParseInt(fracStr, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: fraction %q: %v", ErrMalformedTimestamp, fracStr, err)
		}
		ms = cs * 10
	case 3:
		ms, err = strconv.ParseInt(fracStr, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: fraction %q: %v", ErrMalformedTimestamp, fracStr, err)
		}
	default:
		return 0, fmt.Errorf("%w: fraction %q must have 2 or 3 digits", ErrMalformedTimestamp, fracStr)
	}

	total := (minutes*60+sec)*1000 + ms
	return time.Duration(total) * time.Millisecond, nil
}

// parseLRCOffset parses the [offset:] value; anything unparseable counts as no offset
func parseLRCOffset(value string) int64 {
	offset, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return offset
}
