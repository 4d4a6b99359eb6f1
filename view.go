package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const (
	noArtworkText = "No artwork"
	noLyricsText  = "No lyrics available"
)

func (m model) View() string {
	// Get config snapshot for rendering
	cfg := config.Get()
	theme := m.theme()

	// Use lipgloss.Color to validate the color input
	color := lipgloss.Color(m.accentColor(cfg))
	highlight := lipgloss.NewStyle().Foreground(color)
	white := lipgloss.NewStyle().Foreground(lipgloss.Color("15")) // ANSI white

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(1, 2)

	labelStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	if theme.Duotone {
		mutedStyle = mutedStyle.Foreground(lipgloss.Color(theme.Dim))
	}

	var textContent strings.Builder
	var progressBarContent string
	var lyricsContent string

	track := m.status.Track
	if track == nil {
		if m.lastError == nil || errors.Is(m.lastError, ErrNothingPlaying) {
			// Show friendly placeholder for "nothing playing" state
			textContent.WriteString(highlight.Render("󰓃 Now Playing") + "\n\n")
			textContent.WriteString(mutedStyle.Render("Nothing playing") + "\n\n")
			textContent.WriteString(dimStyle.Render("Start playing music to begin"))
		} else {
			textContent.WriteString(errorStyle.Render("Error: " + m.lastError.Error()))
		}
	} else {
		textContent.WriteString(highlight.Render("󰓃 Now Playing") + "\n\n")

		addLine := func(label, value string) {
			if value != "" {
				textContent.WriteString(
					fmt.Sprintf("%s %s\n",
						labelStyle.Render(label),
						value,
					),
				)
			}
		}

		maxLen := m.textWidth(cfg)
		addLine("󰎈 ", m.scroll.Render(fieldTitle, maxLen, m.scrollOffset, track.Name))
		addLine("󰠃 ", m.scroll.Render(fieldArtist, maxLen, m.scrollOffset, track.Artist))
		addLine("󰀥 ", m.scroll.Render(fieldAlbum, maxLen, m.scrollOffset, track.Album))
		addLine(statusIcon(m.status.State), m.statusLine())

		currentPos := m.getCurrentPosition()
		if track.Duration > 0 {
			// Progress bar with smooth interpolated position - placed below
			// Bar width calculated from max_width, leaving room for timestamps
			barWidth := max(cfg.UI.MaxWidth-17, 1)
			progress := min(float64(currentPos)/float64(track.Duration), 1)
			filled := int(float64(barWidth) * progress)
			progressBar := highlight.Render(strings.Repeat("█", filled)) +
				white.Render(strings.Repeat("─", barWidth-filled))

			progressBarContent = fmt.Sprintf(
				"\n%s %s/%s",
				progressBar,
				highlight.Render(formatDuration(currentPos)),
				highlight.Render(formatDuration(track.Duration)),
			)
		}

		if m.showLyrics {
			lyricsContent = "\n\n" + m.renderLyrics(cfg, currentPos, highlight, mutedStyle)
		}
	}

	topSection := m.renderTop(cfg, textContent.String(), dimStyle)

	mainContent := topSection + progressBarContent + lyricsContent

	contentStr := borderStyle.
		Width(cfg.UI.MaxWidth).
		Render(mainContent)

	// Build help text - either full help or hint to press ?
	var helpText string
	if m.showHelp {
		helpText = lipgloss.NewStyle().
			Width(cfg.UI.MaxWidth).
			Align(lipgloss.Center).
			Render(strings.Join([]string{
				"Play/Pause: " + highlight.Render("p"),
				"Next: " + highlight.Render("n"),
				"Previous: " + highlight.Render("b"),
				"Seek: " + highlight.Render("←/→"),
				"Volume: " + highlight.Render("+/-"),
				"Mute: " + highlight.Render("m"),
				"Shuffle: " + highlight.Render("s"),
				"Repeat: " + highlight.Render("r"),
				"Theme: " + highlight.Render("t") + " (" + theme.Name + ")",
				"Toggle Art: " + highlight.Render("a"),
				"Lyrics: " + highlight.Render("l"),
				"Quit: " + highlight.Render("q"),
				"Hide: " + highlight.Render("?"),
			}, "  "))
	} else {
		helpText = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Render("Press ? for help")
	}

	fullUI := lipgloss.JoinVertical(lipgloss.Center, contentStr, "\n"+helpText)

	return lipgloss.Place(
		m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		fullUI,
	)
}

// renderTop combines the artwork (or its placeholder) with the track text
func (m model) renderTop(cfg Config, text string, dimStyle lipgloss.Style) string {
	var reset string
	if m.supportsKitty {
		// Without a fresh placement, remove any stale image.
		// After a resize, clear everything so no ghost placement survives.
		reset = deleteKittyImages()
	}

	if !cfg.Artwork.Enabled || m.status.Track == nil {
		return reset + text
	}

	art, ok := m.artwork.Value()
	if !ok {
		placeholder := dimStyle.
			Width(cfg.Artwork.WidthColumns).
			Height(max(cfg.Artwork.WidthColumns/2, 1)).
			Align(lipgloss.Center, lipgloss.Center).
			Render(noArtworkText)
		return reset + lipgloss.JoinHorizontal(lipgloss.Top, placeholder, "  ", text)
	}

	if m.artworkProtocol(cfg) == protocolKitty {
		var deleteCmd string
		if m.forceDeleteImg {
			deleteCmd = deleteKittyImages()
		}
		// Add padding to the left of text to make room for the image
		paddedText := lipgloss.NewStyle().
			PaddingLeft(cfg.Artwork.Padding).
			Render(text)
		return deleteCmd + art.encoded + paddedText
	}

	return reset + lipgloss.JoinHorizontal(lipgloss.Top, art.encoded, "  ", text)
}

// renderLyrics shows the lines around the current position, the active one highlighted
func (m model) renderLyrics(cfg Config, pos time.Duration, active, inactive lipgloss.Style) string {
	width := max(cfg.UI.MaxWidth-4, 10)

	lyrics, ok := m.lyrics.Value()
	if !ok {
		if m.lyrics.State() == stateLoading {
			return inactive.Render("Searching lyrics…")
		}
		return inactive.Render(noLyricsText)
	}

	n := cfg.Lyrics.ContextLines
	lines, current := lyrics.Window(pos, n, n)
	rendered := make([]string, 0, len(lines))
	for i, line := range lines {
		text := runewidth.Truncate(line.Text, width, "…")
		if i == current {
			rendered = append(rendered, active.Bold(true).Render(text))
		} else {
			rendered = append(rendered, inactive.Render(text))
		}
	}
	return strings.Join(rendered, "\n")
}

// statusLine describes play state, volume, shuffle and repeat
func (m model) statusLine() string {
	state := m.status.State
	if state == "" {
		state = stateStopped
	}
	parts := []string{strings.ToUpper(state[:1]) + state[1:]}
	if m.status.Volume >= 0 {
		icon := "󰕾 "
		if m.status.Volume == 0 {
			icon = "󰝟 "
		}
		parts = append(parts, fmt.Sprintf("%s%d%%", icon, m.status.Volume))
	}
	if m.status.Shuffle {
		parts = append(parts, "󰒟")
	}
	switch strings.ToLower(m.status.Repeat) {
	case "", "off", "none", "false":
	case "track", "one":
		parts = append(parts, "󰑘")
	default:
		parts = append(parts, "󰑖")
	}
	return strings.Join(parts, "  ")
}

func statusIcon(state string) string {
	switch state {
	case statePaused:
		return "󰏤 " // pause icon
	case stateStopped:
		return "󰓛 " // stop icon
	}
	return "󰐊 " // play icon (default)
}
