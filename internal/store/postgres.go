package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/asktra-labs/asktra/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_finding": `INSERT INTO findings (id, query, result, created_at) VALUES ($1, $2, $3, $4)`,
	"get_finding":    `SELECT id, query, result, created_at FROM findings WHERE id = $1`,
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
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS findings (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	result     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_findings_created_at ON findings(created_at);
CREATE INDEX IF NOT EXISTS idx_findings_query ON findings(query);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveFinding(ctx context.Context, finding model.Finding) error {
	resultJSON, err := json.Marshal(finding.Result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	createdAt := finding.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO findings (id, query, result, created_at) VALUES ($1, $2, $3, $4)`,
		finding.ID, finding.Query, string(resultJSON), createdAt,
	)
	return eris.Wrapf(err, "postgres: insert finding %s", finding.ID)
}

func (s *PostgresStore) GetFinding(ctx context.Context, id string) (*model.Finding, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, query, result, created_at FROM findings WHERE id = $1`,
		id,
	)

	var f model.Finding
	var resultJSON string
	err := row.Scan(&f.ID, &f.Query, &resultJSON, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get finding %s", id)
	}
	if err := json.Unmarshal([]byte(resultJSON), &f.Result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal result")
	}
	return &f, nil
}

func (s *PostgresStore) ListFindings(ctx context.Context, filter ListFilter) ([]model.Finding, error) {
	query := `SELECT id, query, result, created_at FROM findings WHERE 1=1`
	var args []any

	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		query += ` AND query ILIKE $1`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list findings")
	}
	defer rows.Close()

	var findings []model.Finding
	for rows.Next() {
		var f model.Finding
		var resultJSON string
		if err := rows.Scan(&f.ID, &f.Query, &resultJSON, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan finding")
		}
		if err := json.Unmarshal([]byte(resultJSON), &f.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
		findings = append(findings, f)
	}
	return findings, eris.Wrap(rows.Err(), "postgres: list findings iterate")
}
