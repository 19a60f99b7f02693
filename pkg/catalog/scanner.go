package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/EchoTools/nutexTools/pkg/nutexb"
)

// Ext is the file extension of NUTEXB files.
const Ext = ".nutexb"

// ScannedFile is a NUTEXB file found under a scanned directory.
type ScannedFile struct {
	Path string // Full path
	Rel  string // Slash-separated path relative to the scanned directory
	Size int64
}

// Scan walks dir and calls fn for every regular file with a .nutexb
// extension, in lexical order. An error from fn stops the walk.
func Scan(dir string, fn func(ScannedFile) error) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), Ext) {
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}

		return fn(ScannedFile{
			Path: path,
			Rel:  filepath.ToSlash(relPath),
			Size: info.Size(),
		})
	})
}

// Decoder decodes file bytes and reports their content digest.
type Decoder func(data []byte) (*nutexb.Texture, digest.Digest, error)

// IndexStats counts the outcome of an Index run.
type IndexStats struct {
	Indexed int
	Skipped int // Placeholders
	Failed  int
}

// Index scans dir and records every decodable file. Files that fail to
// decode are logged and counted but do not stop the run. Zero-length
// placeholders are skipped. When decode is nil, files are only checked
// by their footer.
func (c *Catalog) Index(dir string, decode Decoder) (IndexStats, error) {
	var stats IndexStats

	err := Scan(dir, func(f ScannedFile) error {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return fmt.Errorf("read %s: %w", f.Path, err)
		}

		footer, err := nutexb.ParseFooter(data)
		if err != nil {
			c.logger.Warn("skip unreadable texture", slog.String("path", f.Rel), slog.Any("error", err))
			stats.Failed++
			return nil
		}
		if footer == nil {
			c.logger.Debug("skip placeholder", slog.String("path", f.Rel))
			stats.Skipped++
			return nil
		}

		dgst := digest.FromBytes(data)
		if decode != nil {
			if _, dgst, err = decode(data); err != nil {
				c.logger.Warn("skip undecodable texture", slog.String("path", f.Rel), slog.Any("error", err))
				stats.Failed++
				return nil
			}
		}

		if err := c.Put(NewEntry(f.Path, dgst, f.Size, footer)); err != nil {
			return err
		}
		c.logger.Debug("indexed texture",
			slog.String("path", f.Rel),
			slog.String("digest", dgst.String()),
			slog.String("format", footer.Format.String()))
		stats.Indexed++
		return nil
	})
	return stats, err
}
