package main

import (
	"context"
	"fmt"
	"image"
	"net/http"
)

// Terminal artwork rendering protocols
const (
	protocolKitty  = "kitty"
	protocolBlocks = "blocks"
)

// artwork is a themed, terminal-ready rendering of a track's cover
type artwork struct {
	image   image.Image // Recolored bitmap
	encoded string      // Kitty escape sequence or half-block cells
	accent  string      // Dominant color, set only when requested
}

// artworkOptions controls how fetched artwork is prepared for display
type artworkOptions struct {
	Protocol     string
	WidthPixels  int
	WidthColumns int
	Mosaic       bool
	MosaicCell   int
	ExtractColor bool
}

// artworkLoader resolves an artwork URL into a themed rendering.
// The cache holds the decoded bitmap at full size; scaling and recoloring
// happen on every load.
type artworkLoader struct {
	cache  *artworkCache
	client *http.Client
	pool   *workerPool
}

// load runs inside a background task
func (l *artworkLoader) load(ctx context.Context, artURL string, theme Theme, opts artworkOptions) (*artwork, error) {
	full, ok := l.cache.Get(ctx, artURL)
	if !ok {
		data, err := fetchArtworkData(ctx, l.client, artURL)
		if err != nil {
			return nil, err
		}
		err = l.pool.Do(ctx, func() error {
			full, err = decodeArtworkData(data)
			return err
		})
		if err != nil {
			return nil, err
		}
		l.cache.Insert(ctx, artURL, full)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	art := &artwork{}
	err := l.pool.Do(ctx, func() error {
		img := downscaleArtwork(full, opts.WidthPixels)
		themed, err := recolorArtwork(img, theme)
		if err != nil {
			return err
		}
		if opts.Mosaic {
			themed = mosaicArtwork(themed, opts.MosaicCell)
		}
		art.image = themed

		switch opts.Protocol {
		case protocolKitty:
			art.encoded, err = encodeArtworkForKitty(themed, opts.WidthColumns)
		default:
			art.encoded, err = renderHalfBlocks(themed, opts.WidthColumns)
		}
		if err != nil {
			return err
		}

		// The accent follows the original colors, not the theme
		if opts.ExtractColor {
			if c, err := extractDominantColor(img); err == nil {
				art.accent = c
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return art, nil
}

// artworkFetcher keeps the displayed artwork in step with the track and theme
type artworkFetcher struct {
	*fetcher[*artwork]
	loader *artworkLoader
}

func newArtworkFetcher(ctx context.Context, loader *artworkLoader) *artworkFetcher {
	return &artworkFetcher{
		fetcher: newFetcher[*artwork](ctx, "artwork"),
		loader:  loader,
	}
}

// artworkIdentity is the effective identity of a rendered artwork: the same
// URL under a different theme or rendering is a different artifact
func artworkIdentity(artURL string, theme Theme, opts artworkOptions) string {
	if artURL == "" {
		return ""
	}
	return fmt.Sprintf("%s|%s|%d|%d|%t|%d|%s", theme.Name, opts.Protocol,
		opts.WidthPixels, opts.WidthColumns, opts.Mosaic, opts.MosaicCell, artURL)
}

// Sync restarts the artwork pipeline when the URL, theme or rendering options change.
// An empty URL settles into Idle with no artwork.
func (a *artworkFetcher) Sync(artURL string, theme Theme, opts artworkOptions) bool {
	return a.fetcher.Sync(artworkIdentity(artURL, theme, opts), func(ctx context.Context) (*artwork, error) {
		return a.loader.load(ctx, artURL, theme, opts)
	})
}
