package main

import "strings"

// Theme is a named UI palette. Primary and Dim drive both the UI styling
// and the duotone recoloring of album artwork.
type Theme struct {
	Name    string
	Primary string // Hex color for highlights and artwork highlights
	Dim     string // Hex color for muted text and artwork shadows
	Retro   bool   // Posterize artwork to a few tones
	Duotone bool   // Recolor artwork to the Dim..Primary ramp
}

// themes is the fixed palette, in cycling order
var themes = []Theme{
	{Name: "Default", Primary: "#5FD7AF", Dim: "#6C6C6C"},
	{Name: "Nord", Primary: "#88C0D0", Dim: "#2E3440", Duotone: true},
	{Name: "Dracula", Primary: "#FF79C6", Dim: "#282A36", Duotone: true},
	{Name: "Gruvbox", Primary: "#FABD2F", Dim: "#3C3836", Duotone: true},
	{Name: "Solarized", Primary: "#268BD2", Dim: "#073642", Duotone: true},
	{Name: "Matrix", Primary: "#00FF41", Dim: "#0D0208", Duotone: true, Retro: true},
	{Name: "Amber CRT", Primary: "#FFB000", Dim: "#1A1000", Duotone: true, Retro: true},
	{Name: "Game Boy", Primary: "#9BBC0F", Dim: "#0F380F", Duotone: true, Retro: true},
}

// themeIndex returns the palette index of the named theme (case-insensitive),
// falling back to the first theme
func themeIndex(name string) int {
	for i, t := range themes {
		if strings.EqualFold(t.Name, name) {
			return i
		}
	}
	return 0
}

// isKnownTheme reports whether name is in the palette
func isKnownTheme(name string) bool {
	for _, t := range themes {
		if strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}

// themeByName returns the named theme, or the default theme
func themeByName(name string) Theme {
	return themes[themeIndex(name)]
}

// nextTheme returns the index of the theme after i, wrapping around
func nextTheme(i int) int {
	return (i + 1) % len(themes)
}
