// Package cache memoizes decoded NUTEXB textures by content digest.
//
// Entries live in memory and, when a directory is configured, on disk as
// archive frames sharded by digest prefix. Concurrent decodes of the same
// bytes are collapsed into one. Failed decodes are never cached.
package cache

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/singleflight"

	"github.com/EchoTools/nutexTools/pkg/archive"
	"github.com/EchoTools/nutexTools/pkg/nutexb"
)

const (
	defaultShardPrefixLen = 2
	defaultDirPerm        = 0o755
	frameExt              = ".ntxz"
)

// Cache holds decoded textures keyed by the sha256 digest of their file bytes.
//
// Returned textures are shared between callers and must not be modified.
// Textures restored from the disk tier carry no Footer.
type Cache struct {
	dir    string
	logger *slog.Logger
	decode func([]byte) (*nutexb.Texture, error)

	mu      sync.RWMutex
	entries map[digest.Digest]*nutexb.Texture
	group   singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithDir enables the disk tier rooted at dir.
func WithDir(dir string) Option {
	return func(c *Cache) {
		c.dir = dir
	}
}

// WithLogger sets the logger for disk tier events. A nil logger discards.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates an empty cache.
func New(opts ...Option) (*Cache, error) {
	c := &Cache{
		decode:  nutexb.Decode,
		entries: make(map[digest.Digest]*nutexb.Texture),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.dir != "" {
		if err := os.MkdirAll(c.dir, defaultDirPerm); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return c, nil
}

// Decode returns the texture decoded from data, decoding at most once per
// distinct content.
func (c *Cache) Decode(data []byte) (*nutexb.Texture, error) {
	tex, _, err := c.DecodeDigest(data)
	return tex, err
}

// DecodeDigest is Decode that also returns the content digest of data.
func (c *Cache) DecodeDigest(data []byte) (*nutexb.Texture, digest.Digest, error) {
	dgst := digest.FromBytes(data)

	if tex, ok := c.Get(dgst); ok {
		return tex, dgst, nil
	}

	result, err, _ := c.group.Do(dgst.String(), func() (any, error) {
		if tex, ok := c.Get(dgst); ok {
			return tex, nil
		}

		if tex, ok := c.load(dgst); ok {
			c.store(dgst, tex)
			return tex, nil
		}

		tex, err := c.decode(data)
		if err != nil {
			return nil, err
		}
		c.store(dgst, tex)
		c.save(dgst, tex)
		return tex, nil
	})
	if err != nil {
		return nil, dgst, err
	}

	tex, _ := result.(*nutexb.Texture) //nolint:errcheck // always a texture when err is nil
	return tex, dgst, nil
}

// Get returns the in-memory texture for dgst.
func (c *Cache) Get(dgst digest.Digest) (*nutexb.Texture, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tex, ok := c.entries[dgst]
	return tex, ok
}

// Len returns the number of in-memory entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops every in-memory entry. The disk tier is left intact.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[digest.Digest]*nutexb.Texture)
}

func (c *Cache) store(dgst digest.Digest, tex *nutexb.Texture) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[dgst] = tex
}

// path returns the frame path for dgst, or "" when the disk tier is off.
func (c *Cache) path(dgst digest.Digest) string {
	if c.dir == "" {
		return ""
	}
	hex := dgst.Encoded()
	return filepath.Join(c.dir, hex[:defaultShardPrefixLen], hex+frameExt)
}

func (c *Cache) load(dgst digest.Digest) (*nutexb.Texture, bool) {
	path := c.path(dgst)
	if path == "" {
		return nil, false
	}

	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("open cache entry", slog.String("path", path), slog.Any("error", err))
		}
		return nil, false
	}
	defer f.Close()

	tex, err := archive.ReadAll(bufio.NewReader(f))
	if err != nil {
		c.logger.Warn("discard corrupt cache entry", slog.String("path", path), slog.Any("error", err))
		_ = os.Remove(path)
		return nil, false
	}
	c.logger.Debug("cache disk hit", slog.String("digest", dgst.String()))
	return tex, true
}

func (c *Cache) save(dgst digest.Digest, tex *nutexb.Texture) {
	path := c.path(dgst)
	if path == "" {
		return
	}
	if err := writeFrame(path, tex); err != nil {
		c.logger.Warn("write cache entry", slog.String("path", path), slog.Any("error", err))
	}
}

// writeFrame writes tex to a temp file beside path and renames it into place.
func writeFrame(path string, tex *nutexb.Texture) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "cache-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := archive.Encode(tmp, tex); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
