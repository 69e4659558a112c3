package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/homematch/internal/types"
	"github.com/jonathan/homematch/internal/zip"
)

// PostgresStore implements Store on a PostgreSQL database for self-hosted
// deployments. Expected schema:
//
//	buyers(id uuid pk, name text, preferred_zip_codes text[], desired_beds
//	  numeric, desired_baths numeric, down_payment numeric, location text,
//	  city text, preferred_location text, latitude numeric, longitude numeric)
//	properties(id uuid pk, address text, zip_code text, price numeric,
//	  beds numeric, baths numeric, latitude numeric, longitude numeric)
//	matches(id uuid pk default gen_random_uuid(), buyer_id uuid, property_id
//	  uuid, score int, is_priority bool, stage text, notes text,
//	  distance_miles numeric, matched_at timestamptz,
//	  unique(buyer_id, property_id))
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres establishes a connection pool and verifies it.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ListBuyers implements Store.
func (s *PostgresStore) ListBuyers(ctx context.Context) ([]types.BuyerPreferences, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, COALESCE(name, ''), COALESCE(preferred_zip_codes, '{}'),
		        desired_beds, desired_baths, down_payment,
		        COALESCE(location, ''), COALESCE(city, ''), COALESCE(preferred_location, ''),
		        latitude, longitude
		 FROM buyers ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list buyers: %w", err)
	}
	defer rows.Close()

	var buyers []types.BuyerPreferences
	for rows.Next() {
		var b types.BuyerPreferences
		var zips []string
		var lat, lng *float64
		if err := rows.Scan(&b.ID, &b.Name, &zips, &b.DesiredBeds, &b.DesiredBaths,
			&b.DownPayment, &b.Location, &b.City, &b.PreferredLocation, &lat, &lng); err != nil {
			return nil, fmt.Errorf("failed to scan buyer: %w", err)
		}
		b.PreferredZipCodes = zip.NormalizeList(zips)
		b.Coords = coordsFromColumns(lat, lng)
		buyers = append(buyers, b)
	}
	return buyers, rows.Err()
}

// ListProperties implements Store.
func (s *PostgresStore) ListProperties(ctx context.Context) ([]types.PropertyAttributes, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, COALESCE(address, ''), COALESCE(zip_code, ''), price, beds, baths,
		        latitude, longitude
		 FROM properties ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	var properties []types.PropertyAttributes
	for rows.Next() {
		var p types.PropertyAttributes
		var lat, lng *float64
		if err := rows.Scan(&p.ID, &p.Address, &p.ZipCode, &p.Price, &p.Beds, &p.Baths, &lat, &lng); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		if z, ok := zip.Normalize(p.ZipCode); ok {
			p.ZipCode = z
		} else {
			p.ZipCode = ""
		}
		p.Coords = coordsFromColumns(lat, lng)
		properties = append(properties, p)
	}
	return properties, rows.Err()
}

// ListMatches implements Store.
func (s *PostgresStore) ListMatches(ctx context.Context) ([]types.MatchRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, buyer_id, property_id, score, is_priority, stage,
		        COALESCE(notes, ''), distance_miles, matched_at
		 FROM matches ORDER BY matched_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []types.MatchRecord
	for rows.Next() {
		var m types.MatchRecord
		var matchedAt *time.Time
		if err := rows.Scan(&m.ID, &m.BuyerID, &m.PropertyID, &m.Score, &m.IsPriority,
			&m.Stage, &m.Notes, &m.DistanceMiles, &matchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		if matchedAt != nil {
			m.MatchedAt = *matchedAt
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// CreateMatches implements Store. The unique (buyer_id, property_id)
// constraint backstops the orchestrator's skip set: re-creating an existing
// pair upgrades to an update of score fields rather than a duplicate row.
func (s *PostgresStore) CreateMatches(ctx context.Context, records []types.MatchRecord) ([]types.MatchRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}

	out := make([]types.MatchRecord, 0, len(records))
	for _, rec := range records {
		var id uuid.UUID
		err := s.pool.QueryRow(ctx,
			`INSERT INTO matches (buyer_id, property_id, score, is_priority, stage, notes, distance_miles, matched_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (buyer_id, property_id) DO UPDATE
			   SET score = $3, is_priority = $4, notes = $6, distance_miles = $7, matched_at = $8
			 RETURNING id`,
			rec.BuyerID, rec.PropertyID, rec.Score, rec.IsPriority,
			string(rec.Stage), rec.Notes, rec.DistanceMiles, rec.MatchedAt,
		).Scan(&id)
		if err != nil {
			return out, fmt.Errorf("failed to create match %s/%s: %w", rec.BuyerID, rec.PropertyID, err)
		}
		rec.ID = id.String()
		out = append(out, rec)
	}
	return out, nil
}

// UpdateMatches implements Store. Stage is preserved.
func (s *PostgresStore) UpdateMatches(ctx context.Context, records []types.MatchRecord) error {
	for _, rec := range records {
		_, err := s.pool.Exec(ctx,
			`UPDATE matches
			 SET score = $1, is_priority = $2, notes = $3, distance_miles = $4, matched_at = $5
			 WHERE id = $6`,
			rec.Score, rec.IsPriority, rec.Notes, rec.DistanceMiles, rec.MatchedAt, rec.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update match %s: %w", rec.ID, err)
		}
	}
	return nil
}

// DeleteMatches implements Store.
func (s *PostgresStore) DeleteMatches(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM matches WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to delete matches: %w", err)
	}
	return nil
}

// ListMatchIDs implements Store.
func (s *PostgresStore) ListMatchIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM matches ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list match ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan match id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetMatch fetches one match by id, or nil when absent.
func (s *PostgresStore) GetMatch(ctx context.Context, id string) (*types.MatchRecord, error) {
	var m types.MatchRecord
	var matchedAt *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT id, buyer_id, property_id, score, is_priority, stage,
		        COALESCE(notes, ''), distance_miles, matched_at
		 FROM matches WHERE id = $1`, id,
	).Scan(&m.ID, &m.BuyerID, &m.PropertyID, &m.Score, &m.IsPriority,
		&m.Stage, &m.Notes, &m.DistanceMiles, &matchedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if matchedAt != nil {
		m.MatchedAt = *matchedAt
	}
	return &m, nil
}

// AdvanceStage moves a match to a new pipeline stage.
func (s *PostgresStore) AdvanceStage(ctx context.Context, id string, stage types.Stage) error {
	if !stage.Valid() {
		return fmt.Errorf("invalid stage: %s", stage)
	}
	result, err := s.pool.Exec(ctx, `UPDATE matches SET stage = $1 WHERE id = $2`, string(stage), id)
	if err != nil {
		return fmt.Errorf("failed to advance stage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("match not found: %s", id)
	}
	return nil
}

func coordsFromColumns(lat, lng *float64) *types.Coords {
	if lat == nil || lng == nil {
		return nil
	}
	return &types.Coords{Latitude: *lat, Longitude: *lng}
}
