package main

import (
	"bytes"
	"sync"
	"testing"

	"github.com/spf13/viper"
)

// TestSafeConfigConcurrency tests that SafeConfig can be safely accessed from multiple goroutines
func TestSafeConfigConcurrency(t *testing.T) {
	sc := &SafeConfig{}

	// Initial config
	initialCfg := Config{}
	initialCfg.UI.Color = "1"
	initialCfg.UI.MaxWidth = 45
	initialCfg.Artwork.Enabled = true
	sc.Set(initialCfg)

	var wg sync.WaitGroup

	// Start 10 writers
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cfg := Config{}
				cfg.UI.Color = string(rune('0' + (id % 10)))
				cfg.UI.MaxWidth = 40 + id
				cfg.Artwork.Enabled = (j % 2) == 0
				sc.Set(cfg)
			}
		}(i)
	}

	// Start 10 readers
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cfg := sc.Get()
				// Just access the fields to ensure no panic
				_ = cfg.UI.Color
				_ = cfg.UI.MaxWidth
				_ = cfg.Artwork.Enabled
			}
		}()
	}

	wg.Wait()

	// If we got here without panic or data race, test passes
}

// TestSafeConfigGetReturnsCopy tests that Get() returns a copy, not a reference
func TestSafeConfigGetReturnsCopy(t *testing.T) {
	sc := &SafeConfig{}

	cfg1 := Config{}
	cfg1.UI.Color = "1"
	cfg1.UI.MaxWidth = 45
	sc.Set(cfg1)

	// Get a copy
	retrieved1 := sc.Get()

	// Modify the local copy
	retrieved1.UI.Color = "2"
	retrieved1.UI.MaxWidth = 100

	// Get another copy - should have original values
	retrieved2 := sc.Get()

	if retrieved2.UI.Color != "1" {
		t.Errorf("Expected color '1', got '%s'", retrieved2.UI.Color)
	}

	if retrieved2.UI.MaxWidth != 45 {
		t.Errorf("Expected max_width 45, got %d", retrieved2.UI.MaxWidth)
	}
}

// TestIsValidColor tests the color validation function
func TestIsValidColor(t *testing.T) {
	tests := []struct {
		name  string
		color string
		valid bool
	}{
		// ANSI codes
		{"ansi single digit", "1", true},
		{"ansi double digit", "15", true},
		{"ansi triple digit", "255", true},
		{"ansi zero", "0", true},
		{"ansi out of range", "256", false},
		{"ansi with letter", "1a", false},

		// Hex colors
		{"hex 6 digits", "#FF5733", true},
		{"hex lowercase", "#ff5733", true},
		{"hex 3 digits", "#F00", true},
		{"hex mixed case", "#Ff5733", true},
		{"hex no hash", "FF5733", false},
		{"hex invalid char", "#GG5733", false},
		{"hex wrong length", "#FF57", false},

		// Edge cases
		{"empty", "", false},
		{"just hash", "#", false},
		{"spaces", " 1 ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isValidColor(tt.color)
			if result != tt.valid {
				t.Errorf("isValidColor(%q) = %v; want %v", tt.color, result, tt.valid)
			}
		})
	}
}

// TestValidateConfig tests configuration validation
func TestValidateConfig(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		cfg := defaultConfig()
		if errs := validateConfig(&cfg); len(errs) > 0 {
			t.Errorf("Expected no errors for the default config, got %d: %v", len(errs), errs)
		}
	})

	tests := []struct {
		name   string
		field  string
		mutate func(cfg *Config)
	}{
		{"max_width too small", "ui.max_width", func(cfg *Config) { cfg.UI.MaxWidth, cfg.Artwork.Padding = 10, 0 }},
		{"invalid color_mode", "ui.color_mode", func(cfg *Config) { cfg.UI.ColorMode = "invalid" }},
		{"invalid color", "ui.color", func(cfg *Config) { cfg.UI.Color = "invalid" }},
		{"unknown theme", "ui.theme", func(cfg *Config) { cfg.UI.Theme = "Vaporwave" }},
		{"padding exceeds max_width", "artwork.padding", func(cfg *Config) { cfg.Artwork.Padding = 50 }},
		{"negative padding", "artwork.padding", func(cfg *Config) { cfg.Artwork.Padding = -5 }},
		{"invalid width_pixels", "artwork.width_pixels", func(cfg *Config) { cfg.Artwork.WidthPixels = 0 }},
		{"empty cache", "artwork.cache_size", func(cfg *Config) { cfg.Artwork.CacheSize = 0 }},
		{"tiny mosaic cell", "artwork.mosaic_cell", func(cfg *Config) { cfg.Artwork.MosaicCell = 1 }},
		{"unknown protocol", "artwork.protocol", func(cfg *Config) { cfg.Artwork.Protocol = "sixel" }},
		{"unknown provider", "lyrics.providers", func(cfg *Config) { cfg.Lyrics.Providers = []string{"lrclib", "genius"} }},
		{"too much lyric context", "lyrics.context_lines", func(cfg *Config) { cfg.Lyrics.ContextLines = 50 }},
		{"ui_refresh_ms too fast", "timing.ui_refresh_ms", func(cfg *Config) { cfg.Timing.UIRefreshMs = 5 }},
		{"request timeout too short", "timing.request_timeout_ms", func(cfg *Config) { cfg.Timing.RequestTimeoutMs = 1 }},
		{"unknown backend", "player.backend", func(cfg *Config) { cfg.Player.Backend = "winamp" }},
		{"unknown log level", "log.level", func(cfg *Config) { cfg.Log.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)

			errs := validateConfig(&cfg)
			if len(errs) != 1 {
				t.Fatalf("Expected exactly one error, got %d: %v", len(errs), errs)
			}
			ce, ok := errs[0].(configError)
			if !ok {
				t.Fatalf("Expected a configError, got %T", errs[0])
			}
			assertEqual(t, ce.field, tt.field, "field")
		})
	}

	t.Run("multiple errors", func(t *testing.T) {
		cfg := Config{}
		errs := validateConfig(&cfg)
		if len(errs) < 10 {
			t.Errorf("Expected an error for most zero fields, got %d", len(errs))
		}
	})

	t.Run("provider names are case-insensitive", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Lyrics.Providers = []string{"LRCLib", "Local"}
		if errs := validateConfig(&cfg); len(errs) > 0 {
			t.Errorf("Expected no errors, got %v", errs)
		}
	})
}

// TestApplyDefaultsForInvalidFields tests default value application
func TestApplyDefaultsForInvalidFields(t *testing.T) {
	cfg := Config{}
	cfg.UI.MaxWidth = 10
	cfg.UI.Color = "invalid"
	cfg.UI.ColorMode = "wrong"
	cfg.Artwork.Padding = -5
	cfg.Lyrics.Providers = []string{"genius"}

	errs := validateConfig(&cfg)
	applyDefaultsForInvalidFields(&cfg, errs)

	def := defaultConfig()
	assertEqual(t, cfg.UI.MaxWidth, def.UI.MaxWidth, "max_width")
	assertEqual(t, cfg.UI.Color, def.UI.Color, "color")
	assertEqual(t, cfg.UI.ColorMode, def.UI.ColorMode, "color_mode")
	assertEqual(t, cfg.UI.Theme, def.UI.Theme, "theme")
	assertEqual(t, cfg.Artwork.Padding, def.Artwork.Padding, "padding")
	assertEqual(t, cfg.Artwork.WidthPixels, def.Artwork.WidthPixels, "width_pixels")
	assertEqual(t, cfg.Timing.UIRefreshMs, def.Timing.UIRefreshMs, "ui_refresh_ms")
	assertEqual(t, len(cfg.Lyrics.Providers), len(def.Lyrics.Providers), "providers")

	// Validate that corrected config is now valid
	if newErrs := validateConfig(&cfg); len(newErrs) > 0 {
		t.Errorf("Expected no errors after applying defaults, got %d: %v", len(newErrs), newErrs)
	}
}

// TestApplyDefaultsKeepsPaddingInsideWidth covers a padding that was valid
// against the rejected max_width but not against the default one
func TestApplyDefaultsKeepsPaddingInsideWidth(t *testing.T) {
	cfg := defaultConfig()
	cfg.UI.MaxWidth = 350
	cfg.Artwork.Padding = 250

	errs := validateConfig(&cfg)
	assertEqual(t, len(errs), 1, "errors")
	applyDefaultsForInvalidFields(&cfg, errs)

	assertEqual(t, cfg.UI.MaxWidth, 45, "max_width")
	assertEqual(t, cfg.Artwork.Padding, 16, "padding")
	if newErrs := validateConfig(&cfg); len(newErrs) > 0 {
		t.Errorf("Expected no errors after applying defaults, got %v", newErrs)
	}
}

func TestPrintConfigWarnings(t *testing.T) {
	errs := []error{
		configError{field: "ui.max_width", message: "must be at least 20 (got 5)"},
		configError{field: "ui.color", message: "invalid color format 'notacolor'"},
	}

	// Output goes to stderr; this only checks it doesn't panic
	printConfigWarnings(errs)
	assertEqual(t, errs[0].Error(), "ui.max_width: must be at least 20 (got 5)", "message")
}

func newTestViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	assertNoError(t, v.ReadConfig(bytes.NewBufferString(yaml)))
	return v
}

func TestReadConfig(t *testing.T) {
	v := newTestViper(t, `
ui:
  theme: Nord
  max_width: 60
artwork:
  mosaic: true
  width_pixels: 0
lyrics:
  providers: [lrclib]
timing:
  ui_refresh_ms: 50
player:
  backend: spotify
spotify:
  client_id: abc
`)

	cfg, errs := readConfig(v)
	assertEqual(t, len(errs), 1, "errors")
	assertEqual(t, cfg.UI.Theme, "Nord", "theme")
	assertEqual(t, cfg.UI.MaxWidth, 60, "max_width")
	assertEqual(t, cfg.Artwork.Mosaic, true, "mosaic")
	assertEqual(t, cfg.Artwork.WidthPixels, 300, "invalid width_pixels reset")
	assertEqual(t, cfg.Timing.UIRefreshMs, 50, "ui_refresh_ms")
	assertEqual(t, cfg.Timing.DataFetchMs, 1000, "data_fetch_ms default")
	assertEqual(t, cfg.Player.Backend, "spotify", "backend")
	assertEqual(t, cfg.Spotify.ClientID, "abc", "spotify client id")
	assertEqual(t, len(cfg.Lyrics.Providers), 1, "providers")
	assertEqual(t, cfg.Artwork.Enabled, true, "artwork enabled default")
}

func TestBindFlags(t *testing.T) {
	v := newTestViper(t, "ui:\n  color: \"5\"\n")

	flags := newFlagSet()
	assertNoError(t, flags.Parse([]string{"--theme", "Dracula", "--no-lyrics", "--debug"}))
	assertNoError(t, bindFlags(v, flags))

	cfg, errs := readConfig(v)
	assertEqual(t, len(errs), 0, "errors")
	assertEqual(t, cfg.UI.Theme, "Dracula", "theme from flag")
	assertEqual(t, cfg.UI.Color, "5", "color from file")
	assertEqual(t, cfg.Lyrics.Enabled, false, "lyrics disabled")
	assertEqual(t, cfg.Artwork.Enabled, true, "artwork untouched")
	assertEqual(t, cfg.Log.Level, "debug", "log level")

	// An explicit flag beats the file
	flags = newFlagSet()
	assertNoError(t, flags.Parse([]string{"-c", "#ff0000"}))
	assertNoError(t, bindFlags(v, flags))
	cfg, _ = readConfig(v)
	assertEqual(t, cfg.UI.Color, "#ff0000", "color from flag")
}

func TestRequestTimeout(t *testing.T) {
	cfg := defaultConfig()
	assertEqual(t, requestTimeout(cfg).Milliseconds(), int64(5000), "timeout")
}
