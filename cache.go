package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// artworkCache is a two-tier, content-addressed cache of decoded artwork.
// The memory tier is a bounded LRU keyed by the raw lookup string; the disk tier
// stores one lossless PNG per lookup key at <dir>/<sha256(key)>.png and is never evicted.
// A disk entry that cannot be read or decoded is a miss, never an error.
type artworkCache struct {
	fs   afero.Fs
	dir  string
	pool *workerPool

	// mu guards mem and is held only for single map operations
	mu  sync.Mutex
	mem *simplelru.LRU[string, image.Image]
}

// newArtworkCache creates a cache rooted at dir. capacity is the number of
// decoded images kept in memory and must be positive.
func newArtworkCache(fs afero.Fs, dir string, capacity int, pool *workerPool) (*artworkCache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("artwork cache capacity must be positive, got %d", capacity)
	}
	if dir == "" {
		return nil, fmt.Errorf("artwork cache directory must be set")
	}
	mem, err := simplelru.NewLRU[string, image.Image](capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	if pool == nil {
		pool = newWorkerPool(0)
	}
	return &artworkCache{
		fs:   fs,
		dir:  dir,
		pool: pool,
		mem:  mem,
	}, nil
}

// cacheKey returns the content address for a lookup string
func cacheKey(lookupKey string) string {
	sum := sha256.Sum256([]byte(lookupKey))
	return hex.EncodeToString(sum[:])
}

// path returns the on-disk location for a lookup string
func (c *artworkCache) path(lookupKey string) string {
	return filepath.Join(c.dir, cacheKey(lookupKey)+".png")
}

// Get returns the cached image for lookupKey, checking memory first and then disk.
// A disk hit is promoted into memory.
func (c *artworkCache) Get(ctx context.Context, lookupKey string) (image.Image, bool) {
	c.mu.Lock()
	img, ok := c.mem.Get(lookupKey)
	c.mu.Unlock()
	if ok {
		return img, true
	}

	path := c.path(lookupKey)
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return nil, false
	}

	var decoded image.Image
	err = c.pool.Do(ctx, func() error {
		var derr error
		decoded, _, derr = image.Decode(bytes.NewReader(data))
		return derr
	})
	if err != nil {
		logger.WithFields(logrus.Fields{"path": path}).WithError(err).Debug("ignoring unreadable cache entry")
		return nil, false
	}

	c.mu.Lock()
	c.mem.Add(lookupKey, decoded)
	c.mu.Unlock()
	return decoded, true
}

// Insert stores img under lookupKey in memory and, best effort, on disk.
// Disk failures are logged and otherwise ignored.
func (c *artworkCache) Insert(ctx context.Context, lookupKey string, img image.Image) {
	if img == nil {
		return
	}

	c.mu.Lock()
	c.mem.Add(lookupKey, img)
	c.mu.Unlock()

	if err := c.persist(ctx, lookupKey, img); err != nil {
		logger.WithField("key", cacheKey(lookupKey)).WithError(err).Debug("failed to persist artwork")
	}
}

// persist writes img to a temporary file and renames it into place, so a
// file at the final path is always complete
func (c *artworkCache) persist(ctx context.Context, lookupKey string, img image.Image) error {
	if err := c.fs.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	var buf bytes.Buffer
	if err := c.pool.Do(ctx, func() error { return png.Encode(&buf, img) }); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}

	tmp, err := afero.TempFile(c.fs, c.dir, "artwork-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(buf.Bytes())
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = c.fs.Remove(tmpName)
		if werr != nil {
			return fmt.Errorf("failed to write artwork: %w", werr)
		}
		return fmt.Errorf("failed to close artwork file: %w", cerr)
	}

	if err := c.fs.Rename(tmpName, c.path(lookupKey)); err != nil {
		_ = c.fs.Remove(tmpName)
		return fmt.Errorf("failed to move artwork into place: %w", err)
	}
	return nil
}

// inMemory reports whether lookupKey is held in the memory tier, without
// touching its recency
func (c *artworkCache) inMemory(lookupKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mem.Contains(lookupKey)
}
