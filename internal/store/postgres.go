package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rfp-radar/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it,
// which is how the postgres paths are unit tested without a server.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for the
// hot write paths.
var preparedStatements = map[string]string{
	"insert_signal":      `INSERT INTO signals (id, organization, category, payload, created_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`,
	"insert_outcome":     `INSERT INTO outcomes (signal_id, organization, status, resolved_tier, cost_usd, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"insert_opportunity": `INSERT INTO opportunities (id, organization, priority, fit_score, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, priority = EXCLUDED.priority, fit_score = EXCLUDED.fit_score`,
	"get_outcome":        `SELECT payload FROM outcomes WHERE signal_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS signals (
	id           TEXT PRIMARY KEY,
	organization TEXT NOT NULL,
	category     TEXT NOT NULL,
	payload      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS outcomes (
	id           BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	signal_id    TEXT NOT NULL,
	organization TEXT NOT NULL,
	status       TEXT NOT NULL,
	resolved_tier TEXT,
	cost_usd     DOUBLE PRECISION NOT NULL DEFAULT 0,
	payload      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS opportunities (
	id           TEXT PRIMARY KEY,
	organization TEXT NOT NULL,
	priority     TEXT NOT NULL,
	fit_score    DOUBLE PRECISION NOT NULL,
	payload      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_signals_organization ON signals(organization);
CREATE INDEX IF NOT EXISTS idx_outcomes_signal_id ON outcomes(signal_id);
CREATE INDEX IF NOT EXISTS idx_outcomes_status ON outcomes(status);
CREATE INDEX IF NOT EXISTS idx_outcomes_organization ON outcomes(organization);
CREATE INDEX IF NOT EXISTS idx_opportunities_priority ON opportunities(priority);
CREATE INDEX IF NOT EXISTS idx_opportunities_fit_score ON opportunities(fit_score DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveSignal(ctx context.Context, sig model.Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal signal")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO signals (id, organization, category, payload, created_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`,
		sig.ID, sig.Organization, string(sig.Category), payload, sig.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert signal %s", sig.ID)
}

func (s *PostgresStore) SaveOutcome(ctx context.Context, out model.CascadeOutcome) error {
	payload, err := json.Marshal(out)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal outcome")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO outcomes (signal_id, organization, status, resolved_tier, cost_usd, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		out.SignalID, out.Organization, string(out.Status), out.ResolvedTier, out.CostUSD, payload, out.CompletedAt,
	)
	return eris.Wrapf(err, "postgres: insert outcome for signal %s", out.SignalID)
}

func (s *PostgresStore) SaveOutcomes(ctx context.Context, outs []model.CascadeOutcome) error {
	for _, out := range outs {
		if err := s.SaveOutcome(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) GetOutcome(ctx context.Context, signalID string) (*model.CascadeOutcome, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM outcomes WHERE signal_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		signalID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get outcome for signal %s", signalID)
	}

	var out model.CascadeOutcome
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal outcome")
	}
	return &out, nil
}

func (s *PostgresStore) ListOutcomes(ctx context.Context, filter OutcomeFilter) ([]model.CascadeOutcome, error) {
	query := `SELECT payload FROM outcomes WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Organization != "" {
		query += fmt.Sprintf(` AND organization = $%d`, argIdx)
		args = append(args, filter.Organization)
		argIdx++
	}
	query += ` ORDER BY created_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list outcomes")
	}
	defer rows.Close()

	var outs []model.CascadeOutcome
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan outcome")
		}
		var out model.CascadeOutcome
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal outcome")
		}
		outs = append(outs, out)
	}
	return outs, eris.Wrap(rows.Err(), "postgres: list outcomes iterate")
}

func (s *PostgresStore) TotalCost(ctx context.Context) (float64, error) {
	var total float64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(SUM(cost_usd), 0) FROM outcomes`).Scan(&total)
	return total, eris.Wrap(err, "postgres: total cost")
}

func (s *PostgresStore) SaveOpportunity(ctx context.Context, opp model.Opportunity) error {
	payload, err := json.Marshal(opp)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal opportunity")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO opportunities (id, organization, priority, fit_score, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, priority = EXCLUDED.priority, fit_score = EXCLUDED.fit_score`,
		opp.ID, opp.Organization, string(opp.Priority), opp.FitScore, payload, opp.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert opportunity %s", opp.ID)
}

func (s *PostgresStore) ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]model.Opportunity, error) {
	query := `SELECT payload FROM opportunities WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Priority != "" {
		query += fmt.Sprintf(` AND priority = $%d`, argIdx)
		args = append(args, string(filter.Priority))
		argIdx++
	}
	if filter.MinFitScore > 0 {
		query += fmt.Sprintf(` AND fit_score >= $%d`, argIdx)
		args = append(args, filter.MinFitScore)
		argIdx++
	}
	query += ` ORDER BY fit_score DESC, created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list opportunities")
	}
	defer rows.Close()

	var opps []model.Opportunity
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan opportunity")
		}
		var opp model.Opportunity
		if err := json.Unmarshal(payload, &opp); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal opportunity")
		}
		opps = append(opps, opp)
	}
	return opps, eris.Wrap(rows.Err(), "postgres: list opportunities iterate")
}
