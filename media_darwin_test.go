//go:build darwin
// +build darwin

package main

import (
	"testing"
	"time"
)

func TestParseAppleScriptStatus(t *testing.T) {
	t.Run("music", func(t *testing.T) {
		got, err := parseAppleScriptStatus("Music", "Song\tBand\tRecord\tplaying\t215,5\t61,25\t40\ttrue\tall")
		assertNoError(t, err)
		assertEqual(t, got.Track.Name, "Song", "name")
		assertEqual(t, got.Track.Duration, 215500*time.Millisecond, "duration in seconds")
		assertEqual(t, got.Track.Position, 61250*time.Millisecond, "comma decimal position")
		assertEqual(t, got.State, statePlaying, "state")
		assertEqual(t, got.Volume, 40, "volume")
		assertEqual(t, got.Shuffle, true, "shuffle")
		assertEqual(t, got.Repeat, "all", "repeat")
	})

	t.Run("spotify durations are milliseconds", func(t *testing.T) {
		got, err := parseAppleScriptStatus("Spotify", "Song\tBand\tRecord\tpaused\t200000\t12.5\tmissing\tfalse\tfalse")
		assertNoError(t, err)
		assertEqual(t, got.Track.Duration, 200*time.Second, "duration")
		assertEqual(t, got.State, statePaused, "state")
		assertEqual(t, got.Volume, -1, "unknown volume")
	})

	t.Run("wrong field count", func(t *testing.T) {
		_, err := parseAppleScriptStatus("Music", "Song\tBand")
		assertError(t, err, "two fields")
	})
}
