package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SpotifyConfig holds Web API credentials for the spotify backend
type SpotifyConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
}

// Config holds all application configuration
type Config struct {
	UI struct {
		Color     string `mapstructure:"color"`
		ColorMode string `mapstructure:"color_mode"`
		Theme     string `mapstructure:"theme"`
		MaxWidth  int    `mapstructure:"max_width"`
		ShowHelp  bool   `mapstructure:"show_help"`
	} `mapstructure:"ui"`
	Artwork struct {
		Enabled      bool   `mapstructure:"enabled"`
		CacheSize    int    `mapstructure:"cache_size"`
		CacheDir     string `mapstructure:"cache_dir"`
		Mosaic       bool   `mapstructure:"mosaic"`
		MosaicCell   int    `mapstructure:"mosaic_cell"`
		Padding      int    `mapstructure:"padding"`
		WidthPixels  int    `mapstructure:"width_pixels"`
		WidthColumns int    `mapstructure:"width_columns"`
		Protocol     string `mapstructure:"protocol"`
	} `mapstructure:"artwork"`
	Lyrics struct {
		Enabled      bool     `mapstructure:"enabled"`
		Providers    []string `mapstructure:"providers"`
		LocalDir     string   `mapstructure:"local_dir"`
		ContextLines int      `mapstructure:"context_lines"`
	} `mapstructure:"lyrics"`
	Text struct {
		MaxLengthWithArt int `mapstructure:"max_length_with_art"`
		MaxLengthNoArt   int `mapstructure:"max_length_no_art"`
	} `mapstructure:"text"`
	Timing struct {
		UIRefreshMs      int `mapstructure:"ui_refresh_ms"`
		DataFetchMs      int `mapstructure:"data_fetch_ms"`
		RequestTimeoutMs int `mapstructure:"request_timeout_ms"`
	} `mapstructure:"timing"`
	Player struct {
		Backend string `mapstructure:"backend"`
	} `mapstructure:"player"`
	Spotify SpotifyConfig `mapstructure:"spotify"`
	Log     struct {
		File  string `mapstructure:"file"`
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// defaultConfig returns the built-in configuration
func defaultConfig() Config {
	var cfg Config
	cfg.UI.Color = "2"
	cfg.UI.ColorMode = "auto"
	cfg.UI.Theme = "Default"
	cfg.UI.MaxWidth = 45
	cfg.Artwork.Enabled = true
	cfg.Artwork.CacheSize = 32
	cfg.Artwork.MosaicCell = 12
	cfg.Artwork.Padding = 16
	cfg.Artwork.WidthPixels = 300
	cfg.Artwork.WidthColumns = 13
	cfg.Artwork.Protocol = "auto"
	cfg.Lyrics.Enabled = true
	cfg.Lyrics.Providers = []string{"local", "lrclib", "netease"}
	cfg.Lyrics.ContextLines = 2
	cfg.Text.MaxLengthWithArt = 22
	cfg.Text.MaxLengthNoArt = 36
	cfg.Timing.UIRefreshMs = 100
	cfg.Timing.DataFetchMs = 1000
	cfg.Timing.RequestTimeoutMs = 5000
	cfg.Player.Backend = "auto"
	cfg.Log.Level = "info"
	return cfg
}

// SafeConfig wraps Config with thread-safe access
type SafeConfig struct {
	mu  sync.RWMutex
	cfg Config
}

// Get returns a copy of the current config (thread-safe read)
func (sc *SafeConfig) Get() Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	cfg := sc.cfg
	cfg.Lyrics.Providers = append([]string(nil), sc.cfg.Lyrics.Providers...)
	return cfg
}

// Set updates the config (thread-safe write)
func (sc *SafeConfig) Set(cfg Config) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cfg = cfg
}

var config = &SafeConfig{cfg: defaultConfig()}

// requestTimeout is the timeout for a single network request
func requestTimeout(cfg Config) time.Duration {
	return time.Duration(cfg.Timing.RequestTimeoutMs) * time.Millisecond
}

// Config file changed notification
type configReloadMsg struct{}

var configChangeChan = make(chan struct{}, 1)

// Watch for config file changes
func watchConfigCmd() tea.Cmd {
	return func() tea.Msg {
		<-configChangeChan
		return configReloadMsg{}
	}
}

// configError describes one invalid configuration field
type configError struct {
	field   string
	message string
}

func (e configError) Error() string {
	return fmt.Sprintf("%s: %s", e.field, e.message)
}

var (
	ansiColorRegex = regexp.MustCompile(`^[0-9]{1,3}$`)
	hexColorRegex  = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// isValidColor accepts ANSI color codes 0-255 and #rgb / #rrggbb hex colors
func isValidColor(color string) bool {
	if ansiColorRegex.MatchString(color) {
		n, err := strconv.Atoi(color)
		return err == nil && n <= 255
	}
	return hexColorRegex.MatchString(color)
}

var knownProviders = map[string]bool{"local": true, "lrclib": true, "netease": true}

// validateConfig checks every field and returns one error per invalid field
func validateConfig(cfg *Config) []error {
	var errs []error
	bad := func(field, format string, args ...any) {
		errs = append(errs, configError{field: field, message: fmt.Sprintf(format, args...)})
	}

	if !isValidColor(cfg.UI.Color) {
		bad("ui.color", "invalid color format '%s'", cfg.UI.Color)
	}
	if cfg.UI.ColorMode != "manual" && cfg.UI.ColorMode != "auto" {
		bad("ui.color_mode", "must be 'manual' or 'auto' (got '%s')", cfg.UI.ColorMode)
	}
	if !isKnownTheme(cfg.UI.Theme) {
		bad("ui.theme", "unknown theme '%s'", cfg.UI.Theme)
	}
	if cfg.UI.MaxWidth < 20 || cfg.UI.MaxWidth > 300 {
		bad("ui.max_width", "must be between 20 and 300 (got %d)", cfg.UI.MaxWidth)
	}

	if cfg.Artwork.CacheSize <= 0 {
		bad("artwork.cache_size", "must be positive (got %d)", cfg.Artwork.CacheSize)
	}
	if cfg.Artwork.MosaicCell < 2 {
		bad("artwork.mosaic_cell", "must be at least 2 (got %d)", cfg.Artwork.MosaicCell)
	}
	if cfg.Artwork.Padding < 0 || cfg.Artwork.Padding >= cfg.UI.MaxWidth {
		bad("artwork.padding", "must be between 0 and max_width (got %d)", cfg.Artwork.Padding)
	}
	if cfg.Artwork.WidthPixels <= 0 || cfg.Artwork.WidthPixels > 2000 {
		bad("artwork.width_pixels", "must be between 1 and 2000 (got %d)", cfg.Artwork.WidthPixels)
	}
	if cfg.Artwork.WidthColumns <= 0 || cfg.Artwork.WidthColumns > 100 {
		bad("artwork.width_columns", "must be between 1 and 100 (got %d)", cfg.Artwork.WidthColumns)
	}
	switch cfg.Artwork.Protocol {
	case "auto", protocolKitty, protocolBlocks:
	default:
		bad("artwork.protocol", "must be 'auto', 'kitty' or 'blocks' (got '%s')", cfg.Artwork.Protocol)
	}

	for _, name := range cfg.Lyrics.Providers {
		if !knownProviders[strings.ToLower(name)] {
			bad("lyrics.providers", "unknown provider '%s'", name)
			break
		}
	}
	if cfg.Lyrics.ContextLines < 0 || cfg.Lyrics.ContextLines > 20 {
		bad("lyrics.context_lines", "must be between 0 and 20 (got %d)", cfg.Lyrics.ContextLines)
	}

	if cfg.Text.MaxLengthWithArt < 1 || cfg.Text.MaxLengthWithArt > 200 {
		bad("text.max_length_with_art", "must be between 1 and 200 (got %d)", cfg.Text.MaxLengthWithArt)
	}
	if cfg.Text.MaxLengthNoArt < 1 || cfg.Text.MaxLengthNoArt > 200 {
		bad("text.max_length_no_art", "must be between 1 and 200 (got %d)", cfg.Text.MaxLengthNoArt)
	}

	if cfg.Timing.UIRefreshMs < 10 || cfg.Timing.UIRefreshMs > 10000 {
		bad("timing.ui_refresh_ms", "must be between 10 and 10000 (got %d)", cfg.Timing.UIRefreshMs)
	}
	if cfg.Timing.DataFetchMs < 100 || cfg.Timing.DataFetchMs > 60000 {
		bad("timing.data_fetch_ms", "must be between 100 and 60000 (got %d)", cfg.Timing.DataFetchMs)
	}
	if cfg.Timing.RequestTimeoutMs < 100 || cfg.Timing.RequestTimeoutMs > 120000 {
		bad("timing.request_timeout_ms", "must be between 100 and 120000 (got %d)", cfg.Timing.RequestTimeoutMs)
	}

	switch strings.ToLower(cfg.Player.Backend) {
	case "auto", "native", "spotify":
	default:
		bad("player.backend", "must be 'auto', 'native' or 'spotify' (got '%s')", cfg.Player.Backend)
	}

	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		bad("log.level", "invalid level '%s'", cfg.Log.Level)
	}

	return errs
}

// applyDefaultsForInvalidFields resets every field named in errs to its default
func applyDefaultsForInvalidFields(cfg *Config, errs []error) {
	def := defaultConfig()
	for _, err := range errs {
		var ce configError
		if !errors.As(err, &ce) {
			continue
		}
		switch ce.field {
		case "ui.color":
			cfg.UI.Color = def.UI.Color
		case "ui.color_mode":
			cfg.UI.ColorMode = def.UI.ColorMode
		case "ui.theme":
			cfg.UI.Theme = def.UI.Theme
		case "ui.max_width":
			cfg.UI.MaxWidth = def.UI.MaxWidth
		case "artwork.cache_size":
			cfg.Artwork.CacheSize = def.Artwork.CacheSize
		case "artwork.mosaic_cell":
			cfg.Artwork.MosaicCell = def.Artwork.MosaicCell
		case "artwork.padding":
			cfg.Artwork.Padding = def.Artwork.Padding
		case "artwork.width_pixels":
			cfg.Artwork.WidthPixels = def.Artwork.WidthPixels
		case "artwork.width_columns":
			cfg.Artwork.WidthColumns = def.Artwork.WidthColumns
		case "artwork.protocol":
			cfg.Artwork.Protocol = def.Artwork.Protocol
		case "lyrics.providers":
			cfg.Lyrics.Providers = def.Lyrics.Providers
		case "lyrics.context_lines":
			cfg.Lyrics.ContextLines = def.Lyrics.ContextLines
		case "text.max_length_with_art":
			cfg.Text.MaxLengthWithArt = def.Text.MaxLengthWithArt
		case "text.max_length_no_art":
			cfg.Text.MaxLengthNoArt = def.Text.MaxLengthNoArt
		case "timing.ui_refresh_ms":
			cfg.Timing.UIRefreshMs = def.Timing.UIRefreshMs
		case "timing.data_fetch_ms":
			cfg.Timing.DataFetchMs = def.Timing.DataFetchMs
		case "timing.request_timeout_ms":
			cfg.Timing.RequestTimeoutMs = def.Timing.RequestTimeoutMs
		case "player.backend":
			cfg.Player.Backend = def.Player.Backend
		case "log.level":
			cfg.Log.Level = def.Log.Level
		}
	}
	// Padding depends on max_width, so it may have become invalid
	if cfg.Artwork.Padding >= cfg.UI.MaxWidth {
		cfg.Artwork.Padding = min(def.Artwork.Padding, cfg.UI.MaxWidth-1)
	}
}

// printConfigWarnings reports invalid fields on stderr before the TUI starts
func printConfigWarnings(errs []error) {
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "Warning: invalid config %v, using default\n", err)
	}
}

// setDefaults registers the built-in configuration with v
func setDefaults(v *viper.Viper) {
	def := defaultConfig()
	v.SetDefault("ui.color", def.UI.Color)
	v.SetDefault("ui.color_mode", def.UI.ColorMode)
	v.SetDefault("ui.theme", def.UI.Theme)
	v.SetDefault("ui.max_width", def.UI.MaxWidth)
	v.SetDefault("ui.show_help", def.UI.ShowHelp)
	v.SetDefault("artwork.enabled", def.Artwork.Enabled)
	v.SetDefault("artwork.cache_size", def.Artwork.CacheSize)
	v.SetDefault("artwork.cache_dir", def.Artwork.CacheDir)
	v.SetDefault("artwork.mosaic", def.Artwork.Mosaic)
	v.SetDefault("artwork.mosaic_cell", def.Artwork.MosaicCell)
	v.SetDefault("artwork.padding", def.Artwork.Padding)
	v.SetDefault("artwork.width_pixels", def.Artwork.WidthPixels)
	v.SetDefault("artwork.width_columns", def.Artwork.WidthColumns)
	v.SetDefault("artwork.protocol", def.Artwork.Protocol)
	v.SetDefault("lyrics.enabled", def.Lyrics.Enabled)
	v.SetDefault("lyrics.providers", def.Lyrics.Providers)
	v.SetDefault("lyrics.local_dir", def.Lyrics.LocalDir)
	v.SetDefault("lyrics.context_lines", def.Lyrics.ContextLines)
	v.SetDefault("text.max_length_with_art", def.Text.MaxLengthWithArt)
	v.SetDefault("text.max_length_no_art", def.Text.MaxLengthNoArt)
	v.SetDefault("timing.ui_refresh_ms", def.Timing.UIRefreshMs)
	v.SetDefault("timing.data_fetch_ms", def.Timing.DataFetchMs)
	v.SetDefault("timing.request_timeout_ms", def.Timing.RequestTimeoutMs)
	v.SetDefault("player.backend", def.Player.Backend)
	v.SetDefault("spotify.client_id", "")
	v.SetDefault("spotify.client_secret", "")
	v.SetDefault("spotify.refresh_token", "")
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("log.level", def.Log.Level)
}

// newFlagSet declares the command-line flags
func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("termtune", pflag.ContinueOnError)
	flags.StringP("color", "c", "", "Set the accent color (ANSI code or hex)")
	flags.String("theme", "", "Start-up theme")
	flags.Bool("no-artwork", false, "Disable album artwork display")
	flags.Bool("no-lyrics", false, "Disable synchronized lyrics")
	flags.String("player", "", "Player backend: auto, native or spotify")
	flags.String("config", "", "Path to a config file")
	flags.String("log-file", "", "Write logs to this file")
	flags.Bool("debug", false, "Log at debug level")
	return flags
}

// bindFlags wires parsed flags into v. Flags only override when set explicitly.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	binds := map[string]string{
		"ui.color":       "color",
		"ui.theme":       "theme",
		"player.backend": "player",
		"log.file":       "log-file",
	}
	for key, name := range binds {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return err
		}
	}

	// Inverted switches have no direct config key
	if flags.Changed("no-artwork") {
		v.Set("artwork.enabled", false)
	}
	if flags.Changed("no-lyrics") {
		v.Set("lyrics.enabled", false)
	}
	if flags.Changed("debug") {
		v.Set("log.level", "debug")
	}
	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
	return nil
}

// readConfig unmarshals v, resetting invalid fields to their defaults.
// The returned errors describe what was reset.
func readConfig(v *viper.Viper) (Config, []error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return defaultConfig(), []error{fmt.Errorf("failed to parse config: %w", err)}
	}
	errs := validateConfig(&cfg)
	applyDefaultsForInvalidFields(&cfg, errs)
	return cfg, errs
}

// configDir is $XDG_CONFIG_HOME/termtune, falling back to ~/.config/termtune
func configDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "termtune")
}

func initConfig(args []string) error {
	// A .env file may carry TERMTUNE_ variables (handy for Spotify secrets)
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: Error reading .env: %v\n", err)
	}

	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		return err
	}

	v := viper.GetViper()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir := configDir(); dir != "" {
		v.AddConfigPath(dir)
	}

	// Environment variable support with TERMTUNE_ prefix
	v.SetEnvPrefix("TERMTUNE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := bindFlags(v, flags); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	// Read config file (ignore error if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file found but had errors
			fmt.Fprintf(os.Stderr, "Warning: Error reading config file: %v\n", err)
		}
	}

	cfg, errs := readConfig(v)
	printConfigWarnings(errs)
	config.Set(cfg)

	// Watch for config file changes and live reload
	v.OnConfigChange(func(e fsnotify.Event) {
		newCfg, errs := readConfig(v)
		for _, err := range errs {
			logger.WithError(err).WithField("file", e.Name).Warn("invalid config value after reload")
		}
		config.Set(newCfg)
		// Config reloaded, notify the app
		select {
		case configChangeChan <- struct{}{}:
		default:
			// Channel full, skip notification
		}
	})
	v.WatchConfig()
	return nil
}
