package ingest

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ancientfall/logistics-enrich/internal/enrich"
	"github.com/ancientfall/logistics-enrich/internal/fetcher"
)

// Files names the export for each source. Empty paths are skipped.
type Files struct {
	Events    string
	Manifests string
	Costs     string
	Bulk      string

	// Sheet selects a worksheet in xlsx exports; the first sheet otherwise.
	Sheet string
}

// Load reads every configured export concurrently and maps it into a batch.
// Issues are sorted by source then row.
func Load(ctx context.Context, files Files) (enrich.Batch, []Issue, error) {
	var (
		b      enrich.Batch
		mu     sync.Mutex
		issues []Issue
	)
	log := zap.L().With(zap.String("component", "ingest"))
	g, gctx := errgroup.WithContext(ctx)

	read := func(src Source, path string, mapTable func(*fetcher.Table) ([]Issue, error)) func() error {
		return func() error {
			t, err := fetcher.ReadTable(gctx, path, fetcher.TableOptions{SheetName: files.Sheet})
			if err != nil {
				return eris.Wrapf(err, "ingest: read %s", src)
			}
			found, err := mapTable(t)
			if err != nil {
				return err
			}
			log.Info("ingest: export read",
				zap.String("source", string(src)),
				zap.String("path", path),
				zap.Int("rows", len(t.Rows)),
				zap.Int("issues", len(found)),
			)
			mu.Lock()
			issues = append(issues, found...)
			mu.Unlock()
			return nil
		}
	}

	if files.Events != "" {
		g.Go(read(SourceEvents, files.Events, func(t *fetcher.Table) (found []Issue, err error) {
			b.Events, found, err = Events(t)
			return found, err
		}))
	}
	if files.Manifests != "" {
		g.Go(read(SourceManifests, files.Manifests, func(t *fetcher.Table) (found []Issue, err error) {
			b.Manifests, found, err = Manifests(t)
			return found, err
		}))
	}
	if files.Costs != "" {
		g.Go(read(SourceCosts, files.Costs, func(t *fetcher.Table) (found []Issue, err error) {
			b.Costs, found, err = Costs(t)
			return found, err
		}))
	}
	if files.Bulk != "" {
		g.Go(read(SourceBulk, files.Bulk, func(t *fetcher.Table) (found []Issue, err error) {
			b.Bulk, found, err = Bulk(t)
			return found, err
		}))
	}
	if err := g.Wait(); err != nil {
		return enrich.Batch{}, nil, err
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Source != issues[j].Source {
			return issues[i].Source < issues[j].Source
		}
		return issues[i].Row < issues[j].Row
	})
	return b, issues, nil
}
