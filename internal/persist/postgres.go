package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	// Registers the pgx database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/carbonledger/carbonledger/internal/logging"
)

// schema creates the calculations table on first connect. Factor and
// breakdown are stored as jsonb so dataset evolution never needs a
// migration.
const schema = `
CREATE TABLE IF NOT EXISTS calculations (
	id                 TEXT PRIMARY KEY,
	company_id         UUID,
	total_emissions    NUMERIC NOT NULL,
	emissions_unit     TEXT NOT NULL,
	scope              TEXT NOT NULL,
	confidence         DOUBLE PRECISION NOT NULL,
	backend            TEXT NOT NULL,
	activity           JSONB NOT NULL,
	matched_factor     JSONB,
	breakdown          JSONB,
	processing_time_ms BIGINT NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertQuery = `
INSERT INTO calculations (
	id, company_id, total_emissions, emissions_unit, scope, confidence,
	backend, activity, matched_factor, breakdown, processing_time_ms
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// connectTimeout bounds the initial ping and schema setup.
const connectTimeout = 10 * time.Second

// Postgres is a Sink backed by PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to the given DSN, verifies the connection, and
// ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrPersistence, err)
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrPersistence, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ensure schema: %v", ErrPersistence, err)
	}

	logging.FromContext(ctx).Debug().
		Str("component", "persist").
		Msg("postgres sink ready")
	return &Postgres{db: db}, nil
}

// Save implements Sink.
func (p *Postgres) Save(ctx context.Context, rec Record) error {
	if rec.Result == nil {
		return fmt.Errorf("%w: nil result", ErrPersistence)
	}
	r := rec.Result

	activityJSON, err := json.Marshal(r.Activity)
	if err != nil {
		return fmt.Errorf("%w: encode activity: %v", ErrPersistence, err)
	}

	var factorJSON, breakdownJSON any
	if r.MatchedFactor != nil {
		b, err := json.Marshal(r.MatchedFactor)
		if err != nil {
			return fmt.Errorf("%w: encode factor: %v", ErrPersistence, err)
		}
		factorJSON = b
	}
	if r.Breakdown != nil {
		b, err := json.Marshal(r.Breakdown)
		if err != nil {
			return fmt.Errorf("%w: encode breakdown: %v", ErrPersistence, err)
		}
		breakdownJSON = b
	}

	var companyID any
	if rec.CompanyID != uuid.Nil {
		companyID = rec.CompanyID
	}

	_, err = p.db.ExecContext(ctx, insertQuery,
		r.ID,
		companyID,
		r.TotalEmissions.String(),
		r.EmissionsUnit,
		r.Scope.String(),
		r.Confidence,
		r.Backend.String(),
		activityJSON,
		factorJSON,
		breakdownJSON,
		r.ProcessingTimeMs,
	)
	if err != nil {
		return fmt.Errorf("%w: insert: %v", ErrPersistence, err)
	}
	return nil
}

// Close implements Sink.
func (p *Postgres) Close() error {
	return p.db.Close()
}
