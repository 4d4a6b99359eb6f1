package main

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbletea"
)

const (
	seekStep   = 5 * time.Second
	volumeStep = 5

	// Ticks to hold scrolling text still at the start of each loop
	scrollPauseTicks = 30
)

// Fields rendered through the scroll cache
const (
	fieldTitle = iota
	fieldArtist
	fieldAlbum
)

// model is the Bubble Tea model for the TUI application
type model struct {
	controller MediaController
	status     PlayerStatus
	lastError  error
	width      int
	height     int

	// For smooth position interpolation
	lastPositionTime time.Time // When we fetched the position

	// Album artwork support
	supportsKitty  bool   // Whether terminal supports Kitty graphics
	artURL         string // Artwork URL of the current track
	accent         string // Dominant artwork color for auto color mode
	forceDeleteImg bool   // Clear stale placements after a resize
	artwork        *artworkFetcher
	lyrics         *lyricsFetcher

	themeIdx    int
	configTheme string // ui.theme as last loaded, so reloads keep a 't' choice

	// Text scrolling state
	scroll       *scrollCache
	scrollOffset int // Current scroll position for text animation
	scrollPause  int // Pause counter at start/end of scroll
	scrollTick   int // Tick counter for slowing scroll speed

	// Volume before muting, -1 when not muted
	unmuteVolume int

	// UI state
	showHelp   bool // Whether to show help text
	showLyrics bool
}

func newModel(ctx context.Context, controller MediaController, loader *artworkLoader, chain *lyricsChain, cfg Config) model {
	return model{
		controller:    controller,
		supportsKitty: supportsKittyGraphics(),
		artwork:       newArtworkFetcher(ctx, loader),
		lyrics:        newLyricsFetcher(ctx, chain),
		themeIdx:      themeIndex(cfg.UI.Theme),
		configTheme:   cfg.UI.Theme,
		scroll:        newScrollCache(),
		unmuteVolume:  -1,
		showHelp:      cfg.UI.ShowHelp,
		showLyrics:    cfg.Lyrics.Enabled,
	}
}

// UI refresh tick - fires every ui_refresh_ms for smooth rendering
type tickMsg time.Time

// Data fetch tick - fires every data_fetch_ms to get fresh player state
type fetchMsg time.Time

// Result of polling the player
type statusMsg struct {
	status PlayerStatus
	artURL string
	err    error
}

// Result of a transport command
type controlMsg struct {
	err error
}

// Schedule next UI refresh tick
func tickCmd() tea.Cmd {
	cfg := config.Get()
	return tea.Tick(time.Duration(cfg.Timing.UIRefreshMs)*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Schedule next data fetch
func fetchCmd() tea.Cmd {
	cfg := config.Get()
	return tea.Tick(time.Duration(cfg.Timing.DataFetchMs)*time.Millisecond, func(t time.Time) tea.Msg {
		return fetchMsg(t)
	})
}

// Poll the player in background (doesn't block UI)
func (m model) fetchStatus() tea.Cmd {
	controller := m.controller
	return func() tea.Msg {
		// Get config snapshot at start of fetch
		cfg := config.Get()
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(cfg))
		defer cancel()

		status, err := controller.Status(ctx)
		if err != nil {
			return statusMsg{err: err}
		}

		var artURL string
		if cfg.Artwork.Enabled && status.Track != nil {
			artURL, err = controller.ArtworkURL(ctx, *status.Track)
			if err != nil {
				logger.WithError(err).Debug("artwork url lookup failed")
				artURL = ""
			}
		}
		return statusMsg{status: status, artURL: artURL}
	}
}

// Run a transport command in background, then refresh the player state
func controlCmd(fn func() error) tea.Cmd {
	return func() tea.Msg {
		return controlMsg{err: fn()}
	}
}

func (m model) theme() Theme {
	return themes[m.themeIdx]
}

// artworkProtocol resolves "auto" against the terminal's capabilities
func (m model) artworkProtocol(cfg Config) string {
	switch cfg.Artwork.Protocol {
	case protocolKitty, protocolBlocks:
		return cfg.Artwork.Protocol
	}
	if m.supportsKitty {
		return protocolKitty
	}
	return protocolBlocks
}

func (m model) artworkOptions(cfg Config) artworkOptions {
	return artworkOptions{
		Protocol:     m.artworkProtocol(cfg),
		WidthPixels:  cfg.Artwork.WidthPixels,
		WidthColumns: cfg.Artwork.WidthColumns,
		Mosaic:       cfg.Artwork.Mosaic,
		MosaicCell:   cfg.Artwork.MosaicCell,
		ExtractColor: cfg.UI.ColorMode == "auto",
	}
}

// syncFetchers points both fetchers at the current track, theme and settings
func (m model) syncFetchers() {
	cfg := config.Get()

	artURL := m.artURL
	if !cfg.Artwork.Enabled || m.status.Track == nil {
		artURL = ""
	}
	m.artwork.Sync(artURL, m.theme(), m.artworkOptions(cfg))

	track := m.status.Track
	if !m.showLyrics {
		track = nil
	}
	m.lyrics.Sync(track)
}

// accentColor picks the UI color: duotone themes own the palette, otherwise
// the artwork accent (auto mode) or the configured color
func (m model) accentColor(cfg Config) string {
	if t := m.theme(); t.Duotone {
		return t.Primary
	}
	if cfg.UI.ColorMode == "auto" && m.accent != "" {
		return m.accent
	}
	return cfg.UI.Color
}

// Calculate current position with smooth interpolation
func (m model) getCurrentPosition() time.Duration {
	track := m.status.Track
	if track == nil {
		return 0
	}

	// If paused, return last known position
	if !m.status.Playing() {
		return track.Position
	}

	// If playing, interpolate based on elapsed time since last fetch
	pos := track.Position + time.Since(m.lastPositionTime)

	// Clamp to duration
	if track.Duration > 0 && pos > track.Duration {
		pos = track.Duration
	}
	return pos
}

func (m model) hasArtwork(cfg Config) bool {
	_, ok := m.artwork.Value()
	return cfg.Artwork.Enabled && ok
}

func (m model) Init() tea.Cmd {
	// Start both the UI refresh loop and data fetch loop
	return tea.Batch(
		tickCmd(),
		m.fetchStatus(),
		fetchCmd(),
		watchConfigCmd(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.forceDeleteImg = true

	case configReloadMsg:
		// Settings may change the artwork rendering or lyrics providers in use
		cfg := config.Get()
		if cfg.UI.Theme != m.configTheme {
			m.themeIdx = themeIndex(cfg.UI.Theme)
			m.configTheme = cfg.UI.Theme
		}
		if cfg.UI.ColorMode == "manual" {
			m.accent = ""
		}
		m.syncFetchers()
		// Continue watching for more config changes
		return m, watchConfigCmd()

	case tickMsg:
		// UI refresh tick - install finished background work
		if m.artwork.Poll() {
			m.accent = ""
			if art, ok := m.artwork.Value(); ok {
				m.accent = art.accent
			}
		}
		m.lyrics.Poll()
		m.forceDeleteImg = false
		m.advanceScroll()
		// Schedule next tick immediately for consistent timing
		return m, tickCmd()

	case fetchMsg:
		// Data fetch tick - get fresh data and schedule next fetch
		return m, tea.Batch(
			fetchCmd(),
			m.fetchStatus(),
		)

	case controlMsg:
		if msg.err != nil {
			m.lastError = msg.err
		}
		// Immediately fetch fresh state after control action
		return m, m.fetchStatus()

	case statusMsg:
		if msg.err != nil {
			m.lastError = msg.err
			m.status = PlayerStatus{}
			m.artURL = ""
			m.syncFetchers()
			return m, nil
		}

		// Reset scroll when track changes
		if lyricsIdentity(msg.status.Track) != lyricsIdentity(m.status.Track) {
			m.scrollOffset = 0
			m.scrollPause = scrollPauseTicks
			m.scrollTick = 0
		}

		m.status = msg.status
		m.artURL = msg.artURL
		m.lastPositionTime = time.Now()
		m.lastError = nil
		m.syncFetchers()
		return m, nil
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.controller
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ", "p":
		return m, controlCmd(func() error { return c.Control(cmdPlayPause) })
	case "n":
		return m, controlCmd(func() error { return c.Control(cmdNext) })
	case "b":
		return m, controlCmd(func() error { return c.Control(cmdPrevious) })
	case "s":
		return m, controlCmd(func() error { return c.Control(cmdShuffle) })
	case "r":
		return m, controlCmd(func() error { return c.Control(cmdRepeat) })
	case "right":
		return m, controlCmd(func() error { return c.Seek(seekStep) })
	case "left":
		return m, controlCmd(func() error { return c.Seek(-seekStep) })
	case "+", "=":
		return m.changeVolume(volumeStep)
	case "-":
		return m.changeVolume(-volumeStep)
	case "m":
		if m.unmuteVolume >= 0 {
			vol := m.unmuteVolume
			m.unmuteVolume = -1
			return m, controlCmd(func() error { return c.SetVolume(vol) })
		}
		if m.status.Volume < 0 {
			return m, nil
		}
		m.unmuteVolume = m.status.Volume
		return m, controlCmd(func() error { return c.SetVolume(0) })
	case "t":
		// Recoloring restarts from the cached bitmap
		m.themeIdx = nextTheme(m.themeIdx)
		m.syncFetchers()
		return m, nil
	case "a":
		// Toggle artwork on/off
		cfg := config.Get()
		cfg.Artwork.Enabled = !cfg.Artwork.Enabled
		config.Set(cfg)
		m.forceDeleteImg = !cfg.Artwork.Enabled
		if cfg.Artwork.Enabled {
			// The artwork URL is only looked up while enabled
			return m, m.fetchStatus()
		}
		m.syncFetchers()
		return m, nil
	case "l":
		m.showLyrics = !m.showLyrics
		m.syncFetchers()
		return m, nil
	case "?":
		// Toggle help text
		m.showHelp = !m.showHelp
		return m, nil
	}
	return m, nil
}

func (m model) changeVolume(delta int) (tea.Model, tea.Cmd) {
	if m.status.Volume < 0 {
		return m, nil
	}
	vol := clampVolume(m.status.Volume + delta)
	m.status.Volume = vol
	m.unmuteVolume = -1
	c := m.controller
	return m, controlCmd(func() error { return c.SetVolume(vol) })
}

// textWidth is the width available to title, artist and album
func (m model) textWidth(cfg Config) int {
	if cfg.Artwork.Enabled && m.status.Track != nil {
		return cfg.Text.MaxLengthWithArt
	}
	return cfg.Text.MaxLengthNoArt
}

// advanceScroll moves long text one step every third tick, pausing at the
// start of each loop
func (m *model) advanceScroll() {
	m.scrollTick++
	if m.scrollPause > 0 {
		m.scrollPause--
		return
	}
	if m.scrollTick%3 != 0 || m.status.Track == nil {
		return
	}
	m.scrollOffset++

	// The longest field determines the loop point
	track := m.status.Track
	longest := ""
	for _, s := range []string{track.Name, track.Artist, track.Album} {
		if len([]rune(s)) > len([]rune(longest)) {
			longest = s
		}
	}
	if len([]rune(longest)) > m.textWidth(config.Get()) && m.scrollOffset >= scrollLoopLength(longest) {
		m.scrollOffset = 0
		m.scrollPause = scrollPauseTicks
	}
}
