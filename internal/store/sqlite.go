package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/rfp-radar/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS signals (
	id           TEXT PRIMARY KEY,
	organization TEXT NOT NULL,
	category     TEXT NOT NULL,
	payload      TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS outcomes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	signal_id    TEXT NOT NULL,
	organization TEXT NOT NULL,
	status       TEXT NOT NULL,
	resolved_tier TEXT,
	cost_usd     REAL NOT NULL DEFAULT 0,
	payload      TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS opportunities (
	id           TEXT PRIMARY KEY,
	organization TEXT NOT NULL,
	priority     TEXT NOT NULL,
	fit_score    REAL NOT NULL,
	payload      TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_signals_organization ON signals(organization);
CREATE INDEX IF NOT EXISTS idx_outcomes_signal_id ON outcomes(signal_id);
CREATE INDEX IF NOT EXISTS idx_outcomes_status ON outcomes(status);
CREATE INDEX IF NOT EXISTS idx_outcomes_organization ON outcomes(organization);
CREATE INDEX IF NOT EXISTS idx_opportunities_priority ON opportunities(priority);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSignal(ctx context.Context, sig model.Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal signal")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO signals (id, organization, category, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		sig.ID, sig.Organization, string(sig.Category), string(payload), sig.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert signal %s", sig.ID)
}

func (s *SQLiteStore) SaveOutcome(ctx context.Context, out model.CascadeOutcome) error {
	payload, err := json.Marshal(out)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal outcome")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO outcomes (signal_id, organization, status, resolved_tier, cost_usd, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		out.SignalID, out.Organization, string(out.Status), out.ResolvedTier, out.CostUSD, string(payload), out.CompletedAt,
	)
	return eris.Wrapf(err, "sqlite: insert outcome for signal %s", out.SignalID)
}

func (s *SQLiteStore) SaveOutcomes(ctx context.Context, outs []model.CascadeOutcome) error {
	for _, out := range outs {
		if err := s.SaveOutcome(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

// GetOutcome returns the most recent outcome for a signal, or nil when the
// signal has never completed a cascade run.
func (s *SQLiteStore) GetOutcome(ctx context.Context, signalID string) (*model.CascadeOutcome, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM outcomes WHERE signal_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		signalID,
	)

	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get outcome for signal %s", signalID)
	}

	var out model.CascadeOutcome
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal outcome")
	}
	return &out, nil
}

func (s *SQLiteStore) ListOutcomes(ctx context.Context, filter OutcomeFilter) ([]model.CascadeOutcome, error) {
	query := `SELECT payload FROM outcomes WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Organization != "" {
		query += ` AND organization = ?`
		args = append(args, filter.Organization)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list outcomes")
	}
	defer rows.Close()

	var outs []model.CascadeOutcome
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outcome")
		}
		var out model.CascadeOutcome
		if err := json.Unmarshal([]byte(payload), &out); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal outcome")
		}
		outs = append(outs, out)
	}
	return outs, eris.Wrap(rows.Err(), "sqlite: list outcomes iterate")
}

func (s *SQLiteStore) TotalCost(ctx context.Context) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(cost_usd), 0) FROM outcomes`).Scan(&total)
	return total, eris.Wrap(err, "sqlite: total cost")
}

func (s *SQLiteStore) SaveOpportunity(ctx context.Context, opp model.Opportunity) error {
	payload, err := json.Marshal(opp)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal opportunity")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO opportunities (id, organization, priority, fit_score, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		opp.ID, opp.Organization, string(opp.Priority), opp.FitScore, string(payload), opp.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert opportunity %s", opp.ID)
}

func (s *SQLiteStore) ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]model.Opportunity, error) {
	query := `SELECT payload FROM opportunities WHERE 1=1`
	var args []any

	if filter.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, string(filter.Priority))
	}
	if filter.MinFitScore > 0 {
		query += ` AND fit_score >= ?`
		args = append(args, filter.MinFitScore)
	}
	query += ` ORDER BY fit_score DESC, created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list opportunities")
	}
	defer rows.Close()

	var opps []model.Opportunity
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan opportunity")
		}
		var opp model.Opportunity
		if err := json.Unmarshal([]byte(payload), &opp); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal opportunity")
		}
		opps = append(opps, opp)
	}
	return opps, eris.Wrap(rows.Err(), "sqlite: list opportunities iterate")
}
