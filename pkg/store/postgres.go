package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS water_readings (
	id           UUID PRIMARY KEY,
	ts           TIMESTAMPTZ NOT NULL,
	chlorine     REAL NOT NULL,
	turbidity    REAL NOT NULL,
	conductivity REAL NOT NULL,
	ph           REAL NOT NULL,
	score        INTEGER NOT NULL,
	label        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS water_readings_ts_idx ON water_readings (ts DESC);
`

// Postgres stores records in the water_readings table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to url and creates the table when missing.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres unavailable: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Name implements Store.
func (p *Postgres) Name() string { return "postgres" }

// Save implements Store.
func (p *Postgres) Save(ctx context.Context, rec Record) error {
	const query = `INSERT INTO water_readings (id, ts, chlorine, turbidity, conductivity, ph, score, label)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := p.pool.Exec(ctx, query, rec.ID.String(), rec.Timestamp,
		rec.Chlorine, rec.Turbidity, rec.Conductivity, rec.PH, rec.Score, rec.Label.String())
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

// Recent implements Store.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]Record, error) {
	const query = `SELECT id::text, ts, chlorine, turbidity, conductivity, ph, score, label
		FROM water_readings ORDER BY ts DESC LIMIT $1`

	if limit <= 0 {
		limit = DefaultCapacity
	}

	rows, err := p.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec   Record
			id    string
			label string
		)
		if err := rows.Scan(&id, &rec.Timestamp, &rec.Chlorine, &rec.Turbidity,
			&rec.Conductivity, &rec.PH, &rec.Score, &label); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid reading id %q: %w", id, err)
		}
		if err := rec.Label.UnmarshalText([]byte(label)); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats implements Store.
func (p *Postgres) Stats(ctx context.Context) (Stats, error) {
	rows, err := p.pool.Query(ctx, `SELECT label, COUNT(*) FROM water_readings GROUP BY label`)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count readings: %w", err)
	}
	defer rows.Close()

	st := Stats{ByLabel: make(map[string]int64)}
	for rows.Next() {
		var (
			label string
			n     int64
		)
		if err := rows.Scan(&label, &n); err != nil {
			return Stats{}, fmt.Errorf("failed to scan count: %w", err)
		}
		st.ByLabel[label] = n
		st.Total += n
	}
	return st, rows.Err()
}

// Close implements Store.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

