// Package postgres provides the Postgres/PostGIS-backed shop store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoplocal/shopfinder/internal/metrics"
	"github.com/shoplocal/shopfinder/internal/shop"
)

// ShopStoreConfig controls the Postgres connection pool backing the store.
type ShopStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// ShopStore owns all persistent access to the shops table.
//
// Every operation funnels through one mutex: at most one store operation runs
// at a time across the process, even though a connection pool sits
// underneath. This carries over the original single-shared-connection
// semantics; interleaved writes observe a serialized order. Callers block for
// the duration of the operation, but only on their own goroutine, so the
// server keeps serving unrelated requests.
//
// Assumed schema:
//
//	CREATE TABLE shops (
//	    id SERIAL PRIMARY KEY,
//	    title VARCHAR NOT NULL CHECK (title <> ''),
//	    url VARCHAR,
//	    donation_url VARCHAR,
//	    location GEOGRAPHY(POINT, 4326) NOT NULL,
//	    last_edited TIMESTAMP NOT NULL DEFAULT NOW()
//	);
//
// with the postgis and pg_trgm extensions installed.
type ShopStore struct {
	mu   sync.Mutex
	pool querier
}

// NewShopStore connects a pool and pings it before returning the store.
func NewShopStore(ctx context.Context, cfg ShopStoreConfig) (*ShopStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &ShopStore{pool: pool}, nil
}

// NewShopStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewShopStoreWithPool(pool querier) (*ShopStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ShopStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *ShopStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks the backing connection.
func (s *ShopStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// shopColumns selects the point back out as raw lon/lat so coordinates
// round-trip exactly as submitted.
const shopColumns = `id, title, url, donation_url,
	ST_X(location::geometry) AS lon, ST_Y(location::geometry) AS lat,
	last_edited`

// ShopsInRange returns every shop whose geodesic distance to center is at
// most radiusMeters, boundary inclusive. No ordering guarantee, no cap.
func (s *ShopStore) ShopsInRange(ctx context.Context, center shop.Point, radiusMeters int) ([]shop.Shop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer metrics.ObserveStoreOp("shops_in_range", time.Now())

	query := `
		SELECT ` + shopColumns + `
		FROM shops
		WHERE ST_DWithin(location, ST_MakePoint($1, $2)::geography, $3)`

	rows, err := s.pool.Query(ctx, query, center.Lon, center.Lat, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("query shops in range: %w", err)
	}
	defer rows.Close()
	return scanShops(rows)
}

// SearchShopsInRange returns shops within radiusMeters of center whose title
// has a trigram word-similarity to query strictly greater than 0.4, sorted
// by title descending and capped at 5 rows. The handler short-circuits
// queries shorter than 2 characters before the store is reached.
func (s *ShopStore) SearchShopsInRange(ctx context.Context, query string, center shop.Point, radiusMeters int) ([]shop.Shop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer metrics.ObserveStoreOp("search_shops_in_range", time.Now())

	sql := `
		SELECT ` + shopColumns + `
		FROM shops
		WHERE ST_DWithin(location, ST_MakePoint($1, $2)::geography, $3)
		AND word_similarity(title, $4) > 0.4
		ORDER BY title DESC
		LIMIT 5`

	rows, err := s.pool.Query(ctx, sql, center.Lon, center.Lat, radiusMeters, query)
	if err != nil {
		return nil, fmt.Errorf("search shops in range: %w", err)
	}
	defer rows.Close()
	return scanShops(rows)
}

// InsertShop persists a submission. The database assigns id and last_edited.
func (s *ShopStore) InsertShop(ctx context.Context, candidate shop.NewShop) (shop.Shop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer metrics.ObserveStoreOp("insert_shop", time.Now())

	query := `
		INSERT INTO shops (title, url, donation_url, location)
		VALUES ($1, $2, $3, ST_MakePoint($4, $5)::geography)
		RETURNING ` + shopColumns

	row := s.pool.QueryRow(ctx, query,
		candidate.Title,
		candidate.URL,
		candidate.DonationURL,
		candidate.Location.Lon,
		candidate.Location.Lat,
	)
	inserted, err := scanShop(row)
	if err != nil {
		return shop.Shop{}, fmt.Errorf("insert shop: %w", wrapPgError(err))
	}
	return inserted, nil
}

// UpdateShop updates the row matching the submission's (title, location)
// exactly and returns it. Only url and last_edited are written; a submitted
// donation_url is dropped on update, matching the original write path. When
// no row matches, shop.ErrNotFound is returned.
func (s *ShopStore) UpdateShop(ctx context.Context, candidate shop.NewShop) (shop.Shop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer metrics.ObserveStoreOp("update_shop", time.Now())

	query := `
		UPDATE shops
		SET url = $1, last_edited = NOW()
		WHERE title = $2 AND location = ST_MakePoint($3, $4)::geography
		RETURNING ` + shopColumns

	row := s.pool.QueryRow(ctx, query,
		candidate.URL,
		candidate.Title,
		candidate.Location.Lon,
		candidate.Location.Lat,
	)
	updated, err := scanShop(row)
	if err != nil {
		return shop.Shop{}, fmt.Errorf("update shop: %w", wrapPgError(err))
	}
	return updated, nil
}

func scanShops(rows pgx.Rows) ([]shop.Shop, error) {
	var shops []shop.Shop
	for rows.Next() {
		var rec shop.Shop
		err := rows.Scan(
			&rec.ID,
			&rec.Title,
			&rec.URL,
			&rec.DonationURL,
			&rec.Location.Lon,
			&rec.Location.Lat,
			&rec.LastEdited,
		)
		if err != nil {
			return nil, fmt.Errorf("scan shop row: %w", err)
		}
		shops = append(shops, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shop rows: %w", err)
	}
	return shops, nil
}

func scanShop(row pgx.Row) (shop.Shop, error) {
	var rec shop.Shop
	err := row.Scan(
		&rec.ID,
		&rec.Title,
		&rec.URL,
		&rec.DonationURL,
		&rec.Location.Lon,
		&rec.Location.Lat,
		&rec.LastEdited,
	)
	if err != nil {
		return shop.Shop{}, err
	}
	return rec, nil
}

// wrapPgError maps driver errors onto the store's error kinds. Postgres
// class 23 covers integrity constraint violations.
func wrapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return shop.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%w: %s", shop.ErrConstraint, pgErr.Message)
	}
	return err
}
