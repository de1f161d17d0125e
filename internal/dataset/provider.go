// Package dataset loads the four-source corpus (chat, commits, tickets,
// docs + release notes) and builds the namespaced context block handed to
// the model.
package dataset

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/asktra-labs/asktra/internal/model"
)

// Source file names inside the dataset directory. Missing files are not an
// error; the source is simply absent for the request.
const (
	fileChat     = "slack.json"
	fileCommits  = "git.json"
	fileTickets  = "jira.json"
	fileDocs     = "docs.md"
	fileReleases = "releases.md"
)

// Provider reads the dataset from a directory. Loading is a pure read: two
// loads without overrides yield identical content.
type Provider struct {
	dir string
}

// NewProvider creates a Provider rooted at dir.
func NewProvider(dir string) *Provider {
	return &Provider{dir: dir}
}

// Load reads all five source files concurrently and assembles the dataset.
func (p *Provider) Load(ctx context.Context) (model.Dataset, error) {
	var ds model.Dataset

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return readJSON(ctx, filepath.Join(p.dir, fileChat), &ds.Chat)
	})
	g.Go(func() error {
		return readJSON(ctx, filepath.Join(p.dir, fileCommits), &ds.Commits)
	})
	g.Go(func() error {
		return readJSON(ctx, filepath.Join(p.dir, fileTickets), &ds.Tickets)
	})
	g.Go(func() error {
		return readText(ctx, filepath.Join(p.dir, fileDocs), &ds.Docs)
	})
	g.Go(func() error {
		return readText(ctx, filepath.Join(p.dir, fileReleases), &ds.ReleaseNotes)
	})

	if err := g.Wait(); err != nil {
		return model.Dataset{}, err
	}
	return ds, nil
}

func readJSON[T any](ctx context.Context, path string, dst *[]T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return eris.Wrapf(err, "dataset: read %s", filepath.Base(path))
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return eris.Wrapf(err, "dataset: parse %s", filepath.Base(path))
	}
	return nil
}

func readText(ctx context.Context, path string, dst *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return eris.Wrapf(err, "dataset: read %s", filepath.Base(path))
	}
	*dst = string(data)
	return nil
}
