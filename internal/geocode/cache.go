package geocode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/placepinapp/placepin-server/internal/domain"
)

// CachedGeocoder wraps a geocoder with a persistent SQLite cache. Addresses
// barely ever move, so hits are served without touching the upstream service
// or its rate limit.
type CachedGeocoder struct {
	upstream Geocoder
	db       *sql.DB
	ttl      time.Duration
	logger   *slog.Logger
}

// Geocoder is the upstream a CachedGeocoder delegates misses to.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Location, error)
}

// NewCachedGeocoder opens (or creates) the cache database at path. A zero ttl
// means entries never expire.
func NewCachedGeocoder(upstream Geocoder, path string, ttl time.Duration, logger *slog.Logger) (*CachedGeocoder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open geocode cache: %w", err)
	}

	// Single writer keeps modernc.org/sqlite happy under concurrency.
	db.SetMaxOpenConns(1)

	const schema = `
		CREATE TABLE IF NOT EXISTS geocode_cache (
			address    TEXT PRIMARY KEY,
			lat        REAL NOT NULL,
			lng        REAL NOT NULL,
			cached_at  INTEGER NOT NULL
		)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create geocode cache schema: %w", err)
	}

	return &CachedGeocoder{
		upstream: upstream,
		db:       db,
		ttl:      ttl,
		logger:   logger,
	}, nil
}

// Geocode serves from cache when possible, delegating misses upstream.
// Upstream failures are never cached.
func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (domain.Location, error) {
	key := normalizeAddress(address)

	var loc domain.Location
	var cachedAt int64
	err := c.db.QueryRowContext(ctx,
		"SELECT lat, lng, cached_at FROM geocode_cache WHERE address = ?", key,
	).Scan(&loc.Lat, &loc.Lng, &cachedAt)
	switch {
	case err == nil:
		if c.ttl == 0 || time.Since(time.Unix(cachedAt, 0)) < c.ttl {
			return loc, nil
		}
	case !errors.Is(err, sql.ErrNoRows):
		return domain.Location{}, fmt.Errorf("read geocode cache: %w", err)
	}

	loc, err = c.upstream.Geocode(ctx, address)
	if err != nil {
		return domain.Location{}, err
	}

	if _, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO geocode_cache (address, lat, lng, cached_at) VALUES (?, ?, ?, ?)",
		key, loc.Lat, loc.Lng, time.Now().Unix(),
	); err != nil && c.logger != nil {
		// A failed cache write is not a failed geocode.
		c.logger.Warn("failed to cache geocode result",
			"address", address,
			"error", err,
		)
	}

	return loc, nil
}

// Close releases the cache database.
func (c *CachedGeocoder) Close() error {
	return c.db.Close()
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}
