package main

import (
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

func TestThemesAreWellFormed(t *testing.T) {
	seen := map[string]bool{}
	for _, theme := range themes {
		if seen[theme.Name] {
			t.Errorf("duplicate theme %q", theme.Name)
		}
		seen[theme.Name] = true

		for _, hex := range []string{theme.Primary, theme.Dim} {
			if _, err := colorful.Hex(hex); err != nil {
				t.Errorf("theme %s: invalid color %q", theme.Name, hex)
			}
		}
		if theme.Retro && !theme.Duotone {
			t.Errorf("theme %s: retro themes must be duotone", theme.Name)
		}
	}
}

func TestThemeLookup(t *testing.T) {
	assertEqual(t, themeIndex("nord"), 1, "case-insensitive")
	assertEqual(t, themeIndex("missing"), 0, "fallback")
	assertEqual(t, themeByName("GAME BOY").Name, "Game Boy", "by name")
	assertEqual(t, isKnownTheme("dracula"), true, "known")
	assertEqual(t, isKnownTheme(""), false, "empty")
}

func TestNextThemeWraps(t *testing.T) {
	i := 0
	for range themes {
		i = nextTheme(i)
	}
	assertEqual(t, i, 0, "full cycle")
}
