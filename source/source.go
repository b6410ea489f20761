// Package source fetches raw peer records from the configured databases.
package source

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/noderecon/common/types"
	"github.com/spacemeshos/noderecon/log"
)

//go:generate mockgen -typed -package=source -destination=./mocks.go -source=./source.go

// Source is a database of peers observed by one crawler.
type Source interface {
	Label() string
	Fetch(context.Context) ([]types.RawRecord, error)
}

// Result of fetching one source.
type Result struct {
	Label   string
	Records []types.RawRecord
	Elapsed time.Duration
}

// FetchAll fetches all sources concurrently. Results are returned in the
// order of sources. The first error cancels remaining fetches.
func FetchAll(ctx context.Context, logger *zap.Logger, sources []Source) ([]Result, error) {
	results := make([]Result, len(sources))
	eg, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		eg.Go(func() error {
			start := time.Now()
			records, err := src.Fetch(ctx)
			elapsed := time.Since(start)
			fetchDuration.WithLabelValues(src.Label()).Observe(elapsed.Seconds())
			if err != nil {
				fetchErrors.WithLabelValues(src.Label()).Inc()
				return fmt.Errorf("fetch %s: %w", src.Label(), err)
			}
			fetchedRecords.WithLabelValues(src.Label()).Add(float64(len(records)))
			logger.Info("fetched source",
				log.Source(src.Label()),
				log.Records(len(records)),
				log.Elapsed(elapsed),
			)
			results[i] = Result{Label: src.Label(), Records: records, Elapsed: elapsed}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
