// Package pgstore keeps the restaurant catalog in PostgreSQL. It serves as a
// catalog supplier for the recommender and as the import target of the
// ingestion service.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog/validator"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/postgres"
)

// Schema creates the catalog tables. restaurants holds one row per record
// in catalog order; catalog_meta is a single row describing the last import.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS restaurants (
    id           TEXT PRIMARY KEY,
    position     INTEGER NOT NULL,
    name         TEXT NOT NULL,
    dietary_tags TEXT[] NOT NULL DEFAULT '{}',
    rating       DOUBLE PRECISION,
    price_level  INTEGER,
    address      TEXT NOT NULL DEFAULT '',
    lat          DOUBLE PRECISION,
    lng          DOUBLE PRECISION,
    hours_text   TEXT NOT NULL DEFAULT '',
    source       TEXT NOT NULL,
    review_count INTEGER,
    phone        TEXT,
    menu_text    TEXT,
    cuisines     TEXT[],
    categories   TEXT[]
)`,
	`CREATE TABLE IF NOT EXISTS catalog_meta (
    id           INTEGER PRIMARY KEY CHECK (id = 1),
    fingerprint  TEXT NOT NULL,
    record_count INTEGER NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
}

// Store reads and replaces the catalog.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "catalog-pgstore"),
	}
}

// EnsureSchema creates the catalog tables when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.db.ApplySchema(ctx, Schema...)
}

// Describe names the table the store reads from.
func (s *Store) Describe() string {
	return "postgres:restaurants"
}

const selectRestaurants = `
SELECT id, name, dietary_tags, rating, price_level, address, lat, lng,
       hours_text, source, review_count, phone, menu_text, cuisines, categories
FROM restaurants
ORDER BY position, id`

const insertRestaurant = `
INSERT INTO restaurants (id, position, name, dietary_tags, rating, price_level,
    address, lat, lng, hours_text, source, review_count, phone, menu_text,
    cuisines, categories)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

// Load returns the stored catalog in position order, validated.
func (s *Store) Load(ctx context.Context) (catalog.Catalog, error) {
	rows, err := s.db.DB.QueryContext(ctx, selectRestaurants)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("querying restaurants: %w", err)
	}
	defer rows.Close()

	var records []catalog.Record
	for rows.Next() {
		var r row
		if err := rows.Scan(
			&r.id, &r.name, pq.Array(&r.tags), &r.rating, &r.priceLevel,
			&r.address, &r.lat, &r.lng, &r.hoursText, &r.source,
			&r.reviewCount, &r.phone, &r.menuText,
			pq.Array(&r.cuisines), pq.Array(&r.categories),
		); err != nil {
			return catalog.Catalog{}, fmt.Errorf("scanning restaurant: %w", err)
		}
		records = append(records, r.record())
	}
	if err := rows.Err(); err != nil {
		return catalog.Catalog{}, fmt.Errorf("iterating restaurants: %w", err)
	}
	if err := validator.Records(records); err != nil {
		return catalog.Catalog{}, fmt.Errorf("validating stored catalog: %w", err)
	}
	s.logger.Debug("catalog loaded", "records", len(records))
	return catalog.New(records), nil
}

const upsertMeta = `
INSERT INTO catalog_meta (id, fingerprint, record_count, updated_at)
VALUES (1, $1, $2, NOW())
ON CONFLICT (id) DO UPDATE
SET fingerprint = EXCLUDED.fingerprint,
    record_count = EXCLUDED.record_count,
    updated_at = EXCLUDED.updated_at`

// Fingerprint returns the fingerprint recorded by the last Replace, or ""
// when nothing has been imported.
func (s *Store) Fingerprint(ctx context.Context) (string, error) {
	var fp string
	err := s.db.DB.QueryRowContext(ctx, `SELECT fingerprint FROM catalog_meta WHERE id = 1`).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading catalog fingerprint: %w", err)
	}
	return fp, nil
}

// Replace swaps the stored catalog for c and records fingerprint, all in
// a single transaction.
func (s *Store) Replace(ctx context.Context, c catalog.Catalog, fingerprint string) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM restaurants`); err != nil {
			return fmt.Errorf("clearing restaurants: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, insertRestaurant)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for i := 0; i < c.Len(); i++ {
			if _, err := stmt.ExecContext(ctx, insertArgs(i, c.At(i))...); err != nil {
				return fmt.Errorf("inserting restaurant %s: %w", c.At(i).ID, err)
			}
		}
		if _, err := tx.ExecContext(ctx, upsertMeta, fingerprint, c.Len()); err != nil {
			return fmt.Errorf("recording catalog fingerprint: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("catalog replaced", "records", c.Len(), "fingerprint", fingerprint)
	return nil
}

// row mirrors one restaurants row with nullable columns.
type row struct {
	id          string
	name        string
	tags        []string
	rating      sql.NullFloat64
	priceLevel  sql.NullInt64
	address     string
	lat         sql.NullFloat64
	lng         sql.NullFloat64
	hoursText   string
	source      string
	reviewCount sql.NullInt64
	phone       sql.NullString
	menuText    sql.NullString
	cuisines    []string
	categories  []string
}

func (r row) record() catalog.Record {
	tags := make([]catalog.DietaryTag, len(r.tags))
	for i, t := range r.tags {
		tags[i] = catalog.DietaryTag(t)
	}
	return catalog.Record{
		ID:          r.id,
		Name:        r.name,
		DietaryTags: tags,
		Rating:      nullFloat(r.rating),
		PriceLevel:  nullInt(r.priceLevel),
		Address:     r.address,
		Lat:         nullFloat(r.lat),
		Lng:         nullFloat(r.lng),
		HoursText:   r.hoursText,
		Source:      catalog.Source(r.source),
		ReviewCount: nullInt(r.reviewCount),
		Phone:       r.phone.String,
		MenuText:    r.menuText.String,
		Cuisines:    r.cuisines,
		Categories:  r.categories,
	}
}

func insertArgs(position int, rec *catalog.Record) []any {
	tags := make([]string, len(rec.DietaryTags))
	for i, t := range rec.DietaryTags {
		tags[i] = string(t)
	}
	return []any{
		rec.ID, position, rec.Name, pq.Array(tags), rec.Rating, rec.PriceLevel,
		rec.Address, rec.Lat, rec.Lng, rec.HoursText, string(rec.Source),
		rec.ReviewCount, nullString(rec.Phone), nullString(rec.MenuText),
		pq.Array(rec.Cuisines), pq.Array(rec.Categories),
	}
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
