// Package catalog indexes NUTEXB files in a sqlite database.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
	"github.com/opencontainers/go-digest"

	"github.com/EchoTools/nutexTools/pkg/nutexb"
)

// ErrNotFound is returned when no entry matches a digest.
var ErrNotFound = errors.New("texture not found")

const schema = `
	CREATE TABLE IF NOT EXISTS
		textures
	(
		path TEXT NOT NULL PRIMARY KEY,
		digest TEXT NOT NULL,
		name TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		depth INTEGER NOT NULL,
		format INTEGER NOT NULL,
		mipCount INTEGER NOT NULL,
		arrayCount INTEGER NOT NULL,
		imageSize INTEGER NOT NULL,
		fileSize INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS textures_digest ON textures (digest);
`

const columns = `path, digest, name, width, height, depth, format, mipCount, arrayCount, imageSize, fileSize`

// Entry describes one indexed NUTEXB file.
type Entry struct {
	Path       string        `json:"path"`
	Digest     digest.Digest `json:"digest"`
	Name       string        `json:"name"`
	Width      uint32        `json:"width"`
	Height     uint32        `json:"height"`
	Depth      uint32        `json:"depth"`
	Format     nutexb.Format `json:"format"`
	MipCount   uint32        `json:"mipCount"`
	ArrayCount uint32        `json:"arrayCount"`
	ImageSize  uint32        `json:"imageSize"`
	FileSize   int64         `json:"fileSize"`
}

// NewEntry builds an entry for the file at path from its footer.
func NewEntry(path string, dgst digest.Digest, fileSize int64, f *nutexb.Footer) Entry {
	return Entry{
		Path:       path,
		Digest:     dgst,
		Name:       f.Name,
		Width:      f.Width,
		Height:     f.Height,
		Depth:      f.Depth,
		Format:     f.Format,
		MipCount:   f.MipCount,
		ArrayCount: f.ArrayCount,
		ImageSize:  f.ImageSize,
		FileSize:   fileSize,
	}
}

// Catalog is a sqlite-backed texture index.
type Catalog struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger used while indexing. A nil logger discards.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// Open opens or creates the catalog database at path.
func Open(path string, opts ...Option) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	c := &Catalog{db: db}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Put inserts or replaces the entry for e.Path.
func (c *Catalog) Put(e Entry) error {
	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO
			textures
				(`+columns+`)
		VALUES
				(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Path, e.Digest.String(), e.Name, e.Width, e.Height, e.Depth,
		int(e.Format), e.MipCount, e.ArrayCount, e.ImageSize, e.FileSize)
	if err != nil {
		return fmt.Errorf("put %s: %w", e.Path, err)
	}
	return nil
}

// Get returns the entry with the given digest. When several files share the
// content, the one with the lowest path wins.
func (c *Catalog) Get(dgst digest.Digest) (*Entry, error) {
	row := c.db.QueryRow(`
	SELECT
		`+columns+`
	FROM
		textures
	WHERE
		digest = ?
	ORDER BY path
	LIMIT 1`, dgst.String())

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("get %s: %w", dgst, err)
	}
	return e, nil
}

// List returns every entry ordered by path.
func (c *Catalog) List() ([]Entry, error) {
	rows, err := c.db.Query(`SELECT ` + columns + ` FROM textures ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e      Entry
		dgst   string
		format int
	)
	err := s.Scan(
		&e.Path,
		&dgst,
		&e.Name,
		&e.Width,
		&e.Height,
		&e.Depth,
		&format,
		&e.MipCount,
		&e.ArrayCount,
		&e.ImageSize,
		&e.FileSize,
	)
	if err != nil {
		return nil, err
	}
	e.Digest = digest.Digest(dgst)
	e.Format = nutexb.Format(format)
	return &e, nil
}
