package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

// artworkCacheDir is artwork.cache_dir, or the user cache directory
func artworkCacheDir(cfg Config) (string, error) {
	if cfg.Artwork.CacheDir != "" {
		return cfg.Artwork.CacheDir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return filepath.Join(dir, "termtune", "artwork"), nil
}

func run() error {
	if err := initConfig(os.Args[1:]); err != nil {
		return err
	}
	cfg := config.Get()

	logFile, err := setupLogging(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	controller, err := NewMediaController(cfg)
	if err != nil {
		return err
	}

	cacheDir, err := artworkCacheDir(cfg)
	if err != nil {
		return err
	}

	fsys := afero.NewOsFs()
	pool := newWorkerPool(0)
	cache, err := newArtworkCache(fsys, cacheDir, cfg.Artwork.CacheSize, pool)
	if err != nil {
		return err
	}

	client := newHTTPClient(requestTimeout(cfg))
	loader := &artworkLoader{cache: cache, client: client, pool: pool}
	chain := newLyricsChain(cfg, client, fsys)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initialModel := newModel(ctx, controller, loader, chain, cfg)
	defer initialModel.artwork.Close()
	defer initialModel.lyrics.Close()

	logger.WithField("cache_dir", cacheDir).Info("starting")

	if _, err := tea.NewProgram(initialModel, tea.WithAltScreen()).Run(); err != nil {
		return err
	}

	if initialModel.supportsKitty {
		fmt.Print(deleteKittyImages())
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
