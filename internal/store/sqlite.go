package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/asktra-labs/asktra/internal/model"
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
CREATE TABLE IF NOT EXISTS findings (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	result     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_findings_created_at ON findings(created_at);
CREATE INDEX IF NOT EXISTS idx_findings_query ON findings(query);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveFinding(ctx context.Context, finding model.Finding) error {
	resultJSON, err := json.Marshal(finding.Result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	createdAt := finding.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO findings (id, query, result, created_at) VALUES (?, ?, ?, ?)`,
		finding.ID, finding.Query, string(resultJSON), createdAt,
	)
	return eris.Wrapf(err, "sqlite: insert finding %s", finding.ID)
}

func (s *SQLiteStore) GetFinding(ctx context.Context, id string) (*model.Finding, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query, result, created_at FROM findings WHERE id = ?`,
		id,
	)
	return scanFinding(row)
}

func (s *SQLiteStore) ListFindings(ctx context.Context, filter ListFilter) ([]model.Finding, error) {
	query := `SELECT id, query, result, created_at FROM findings WHERE 1=1`
	var args []any

	if filter.Query != "" {
		query += ` AND query LIKE ?`
		args = append(args, "%"+filter.Query+"%")
	}
	query += ` ORDER BY created_at DESC`

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
		return nil, eris.Wrap(err, "sqlite: list findings")
	}
	defer rows.Close()

	var findings []model.Finding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, err
		}
		findings = append(findings, *f)
	}
	return findings, eris.Wrap(rows.Err(), "sqlite: list findings iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanFinding(row scannable) (*model.Finding, error) {
	var f model.Finding
	var resultJSON string

	err := row.Scan(&f.ID, &f.Query, &resultJSON, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan finding")
	}

	if err := json.Unmarshal([]byte(resultJSON), &f.Result); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal result")
	}
	return &f, nil
}
