// Package cache keeps decoded TGA pixels in SQLite, keyed by the SHA-1 of
// the source file and compressed with zstd.
package cache

import (
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rcarmo/go-tga/internal/codec"
	"github.com/rcarmo/go-tga/internal/logging"
)

// ErrCorrupt is returned when a stored entry does not match its dimensions.
var ErrCorrupt = errors.New("cache: corrupt entry")

// Cache is a decoded texture store. It is safe for concurrent use.
type Cache struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Sum returns the cache key for a TGA file.
func Sum(data []byte) string {
	h := sha1.Sum(data)
	return hex.EncodeToString(h[:])
}

// Open opens or creates the cache database at file. level is the zstd
// encoder level, 1 (fastest) to 4 (best).
func Open(file string, level int) (*Cache, error) {
	if level < int(zstd.SpeedFastest) || level > int(zstd.SpeedBestCompression) {
		return nil, fmt.Errorf("cache: compression level %d out of range", level)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS texture (sha1 TEXT PRIMARY KEY NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, layout INTEGER NOT NULL, top_down INTEGER NOT NULL, pix BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(
		nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.EncoderLevel(level)),
	)
	if err != nil {
		db.Close()
		return nil, err
	}

	dec, err := zstd.NewReader(
		nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
	)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}

	return &Cache{
		db:  db,
		enc: enc,
		dec: dec,
	}, nil
}

// Get returns the image stored under sum. The boolean is false on a miss.
func (c *Cache) Get(sum string) (*codec.Image, bool, error) {
	var (
		width, height, layout int
		topDown               bool
		blob                  []byte
	)

	switch err := c.db.QueryRow("SELECT width, height, layout, top_down, pix FROM texture WHERE sha1 = ?", sum).Scan(&width, &height, &layout, &topDown, &blob); err {
	case sql.ErrNoRows:
		return nil, false, nil
	case nil:
	default:
		return nil, false, err
	}

	pix, err := c.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %w", ErrCorrupt, sum, err)
	}

	l := codec.Layout(layout)
	if len(pix) != width*height*l.Channels() {
		return nil, false, fmt.Errorf("%w: %s: %d bytes for %dx%d %s", ErrCorrupt, sum, len(pix), width, height, l)
	}

	logging.Debug("cache hit %s (%dx%d %s)", sum, width, height, l)

	return &codec.Image{
		Width:         width,
		Height:        height,
		Layout:        l,
		BytesPerPixel: l.Channels(),
		Pix:           pix,
		TopDown:       topDown,
	}, true, nil
}

// Put stores m under sum, replacing any previous entry.
func (c *Cache) Put(sum string, m *codec.Image) error {
	blob := c.enc.EncodeAll(m.Pix, nil)

	if _, err := c.db.Exec("INSERT OR REPLACE INTO texture (sha1, width, height, layout, top_down, pix) VALUES (?, ?, ?, ?, ?, ?)", sum, m.Width, m.Height, int(m.Layout), m.TopDown, blob); err != nil {
		return err
	}

	logging.Debug("cache put %s (%d -> %d bytes)", sum, len(m.Pix), len(blob))

	return nil
}

// Len returns the number of stored images.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM texture").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close releases the database and codec resources.
func (c *Cache) Close() error {
	c.dec.Close()
	if err := c.enc.Close(); err != nil {
		c.db.Close()
		return err
	}
	return c.db.Close()
}
