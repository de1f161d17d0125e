// Package store persists archived findings. Two drivers are provided:
// SQLite for single-node deployments and Postgres for shared ones.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/asktra-labs/asktra/internal/model"
)

// ErrNotFound is returned when a finding id does not exist.
var ErrNotFound = eris.New("store: finding not found")

// ListFilter specifies criteria for listing findings.
type ListFilter struct {
	Query  string `json:"query,omitempty"` // substring match on the original question
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the findings archive.
type Store interface {
	SaveFinding(ctx context.Context, finding model.Finding) error
	GetFinding(ctx context.Context, id string) (*model.Finding, error)
	ListFindings(ctx context.Context, filter ListFilter) ([]model.Finding, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the given driver ("sqlite" or "postgres") and
// runs migrations.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "sqlite", "":
		s, err = NewSQLite(dsn)
	case "postgres":
		s, err = NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
