package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/spacemeshos/noderecon/common/types"
	"github.com/spacemeshos/noderecon/compare"
	"github.com/spacemeshos/noderecon/export"
	"github.com/spacemeshos/noderecon/log"
	"github.com/spacemeshos/noderecon/metrics"
	"github.com/spacemeshos/noderecon/normalizer"
	"github.com/spacemeshos/noderecon/reconcile"
	"github.com/spacemeshos/noderecon/report"
	"github.com/spacemeshos/noderecon/source"
	"github.com/spacemeshos/noderecon/source/snapshot"
	"github.com/spacemeshos/noderecon/sql/peers"
	"github.com/spacemeshos/noderecon/sql/runs"
	"github.com/spacemeshos/noderecon/timeseries"
)

const (
	mergedFileName = "merged.csv"
	seriesFileName = "series.json"
	metricsJob     = "noderecon"
)

// KeyIP and KeyID select the record attribute compared with a peer list.
const (
	KeyIP = "ip"
	KeyID = "id"
)

var errNotInitialized = errors.New("app is not initialized")

// Result of a reconciliation run.
type Result struct {
	Run         *runs.Run
	Collections []types.Collection
	Merged      types.Collection
	Report      *report.Data
}

// Run fetches all sources and reconciles them. Outputs are written according
// to the configuration and the report is written to the app output.
func (app *App) Run(ctx context.Context) (*Result, error) {
	if app.db == nil {
		return nil, errNotInitialized
	}
	logger := app.addLogger(AppLogger, app.Config.Logging.AppLoggerLevel)
	started := app.clock.Now()
	sources := app.buildSources()
	if len(sources) == 0 {
		return nil, errors.New("no sources configured")
	}

	fetchCtx := ctx
	if app.Config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, app.Config.FetchTimeout)
		defer cancel()
	}
	fetched, err := source.FetchAll(fetchCtx, app.addLogger(SourceLogger, app.Config.Logging.SourceLoggerLevel), sources)
	if err != nil {
		return nil, err
	}
	if app.Config.PersistRun {
		if err := app.saveSnapshots(ctx, sources, fetched); err != nil {
			return nil, err
		}
	}

	result := &Result{
		Run:    &runs.Run{ID: uuid.New(), Started: started},
		Report: &report.Data{Started: started},
	}
	result.Report.RunID = result.Run.ID.String()
	result.Collections = app.normalize(fetched, result)

	merged, count, err := reconcile.Union(result.Collections)
	if err != nil {
		return nil, fmt.Errorf("union: %w", err)
	}
	result.Merged = merged
	result.Run.Merged = count
	result.Report.MergedCount = count
	result.Report.Merged = timeseries.Summarize(merged, timeseries.DefaultPredicates())
	mergedPeers.WithLabelValues().Set(float64(count))

	subsets, err := shared(result.Collections)
	if err != nil {
		return nil, err
	}
	for _, subset := range subsets {
		sharedPeers.WithLabelValues(subset.Name()).Set(float64(subset.Count))
	}
	result.Run.Subsets = subsets
	result.Report.Subsets = subsets

	if app.Config.EstimateUnion {
		estimate, err := reconcile.EstimateUnion(result.Collections)
		if err != nil {
			return nil, fmt.Errorf("estimate union: %w", err)
		}
		result.Run.Estimate = estimate
		result.Report.Estimate = estimate
	}

	comparisons := app.compareLists(ctx, merged)
	result.Run.Comparisons = comparisons
	result.Report.Comparisons = comparisons

	if err := app.export(result); err != nil {
		return nil, err
	}

	finished := app.clock.Now()
	result.Run.Finished = finished
	result.Report.Finished = finished
	if app.Config.PersistRun {
		if err := runs.Add(ctx, app.db, result.Run); err != nil {
			return nil, fmt.Errorf("persist run: %w", err)
		}
	}
	completedRuns.WithLabelValues().Inc()
	logger.Info("run completed",
		zap.Stringer("id", result.Run.ID),
		zap.Int("sources", len(result.Collections)),
		zap.Int("merged", count),
		log.Elapsed(finished.Sub(started)),
	)

	if err := report.Write(app.out, result.Report); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	if url := app.Config.MetricsPushURL; url != "" {
		grouping := map[string]string{"run": result.Run.ID.String()}
		if err := metrics.Push(ctx, url, metricsJob, grouping); err != nil {
			logger.Warn("failed to push metrics", zap.String("url", url), zap.Error(err))
		}
	}
	return result, nil
}

// saveSnapshots stores raw records of every source that isn't itself a
// snapshot, so that the run can be repeated offline.
func (app *App) saveSnapshots(ctx context.Context, sources []source.Source, fetched []source.Result) error {
	imported := app.clock.Now()
	for i, src := range sources {
		if _, ok := src.(*snapshot.Source); ok {
			continue
		}
		if err := peers.Replace(ctx, app.db, fetched[i].Label, imported, fetched[i].Records); err != nil {
			return fmt.Errorf("save snapshot of %s: %w", fetched[i].Label, err)
		}
	}
	return nil
}

func (app *App) normalize(fetched []source.Result, result *Result) []types.Collection {
	norm := normalizer.New(
		normalizer.WithLogger(app.addLogger(NormalizerLogger, app.Config.Logging.NormalizerLevel)),
		normalizer.WithIDField(app.Config.Normalizer.IDField),
		normalizer.WithDedup(app.Config.Normalizer.Dedup),
	)
	predicates := timeseries.DefaultPredicates()
	collections := make([]types.Collection, 0, len(fetched))
	for _, res := range fetched {
		collection, rep := norm.NormalizeAll(res.Label, res.Records)
		collections = append(collections, collection)
		result.Report.Sources = append(result.Report.Sources, report.Source{
			Normalization: rep,
			Summary:       timeseries.Summarize(collection, predicates),
		})
		result.Run.Sources = append(result.Run.Sources, runs.SourceStats{
			Label:   rep.Source,
			Input:   rep.Input,
			Kept:    rep.Kept,
			Dropped: rep.Dropped,
		})
	}
	return collections
}

// shared counts identifiers shared by every subset of collections. With too
// many collections only the intersection of all of them is counted.
func shared(collections []types.Collection) ([]types.SubsetCount, error) {
	if len(collections) <= reconcile.MaxSubsetSources {
		subsets, err := reconcile.Subsets(collections)
		if err != nil {
			return nil, fmt.Errorf("subsets: %w", err)
		}
		return subsets, nil
	}
	count, err := reconcile.IntersectionAll(collections)
	if err != nil {
		return nil, fmt.Errorf("intersection: %w", err)
	}
	return []types.SubsetCount{{
		Indices: lo.Range(len(collections)),
		Labels:  lo.Map(collections, func(c types.Collection, _ int) string { return c.Label }),
		Count:   count,
	}}, nil
}

// compareLists compares merged records with every configured peer list.
// A list that can't be loaded is skipped.
func (app *App) compareLists(ctx context.Context, merged types.Collection) []runs.ListComparison {
	if len(app.Config.PeerLists) == 0 {
		return nil
	}
	logger := app.addLogger(PeerListLogger, app.Config.Logging.PeerListLoggerLevel)
	fetcher := app.newFetcher()
	reference := map[string]types.IdentifierSet{
		KeyIP: compare.NormalizeSet(merged.IPs()),
		KeyID: compare.NormalizeSet(merged.IDs()),
	}
	var rst []runs.ListComparison
	for _, pl := range app.Config.PeerLists {
		list, err := app.loadPeerList(ctx, fetcher, pl)
		if err != nil {
			logger.Warn("skipping peer list", zap.String("list", pl.Label), zap.Error(err))
			continue
		}
		cmp, err := compare.CompareChecked(reference[pl.Key], list.IDs)
		if err != nil {
			logger.Warn("skipping peer list", zap.String("list", pl.Label), zap.Error(err))
			continue
		}
		listOverlap.WithLabelValues(pl.Label).Set(float64(cmp.Overlap))
		logger.Info("compared peer list",
			zap.String("list", pl.Label),
			zap.Int("rows", list.Rows),
			zap.Int("skipped", list.Skipped),
			zap.Int("overlap", cmp.Overlap),
		)
		rst = append(rst, runs.ListComparison{List: pl.Label, Key: pl.Key, Comparison: cmp})
	}
	return rst
}

func (app *App) export(result *Result) error {
	if !app.Config.ExportCSV && !app.Config.ExportSeries {
		return nil
	}
	dir := app.Config.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir %s: %w", dir, err)
	}
	if app.Config.ExportCSV {
		for _, collection := range result.Collections {
			if err := export.WriteCSV(filepath.Join(dir, fileName(collection.Label)+".csv"), collection); err != nil {
				return err
			}
		}
		if err := export.WriteCSV(filepath.Join(dir, mergedFileName), result.Merged); err != nil {
			return err
		}
	}
	if app.Config.ExportSeries {
		summaries := lo.Map(result.Report.Sources, func(src report.Source, _ int) timeseries.Summary {
			return src.Summary
		})
		summaries = append(summaries, result.Report.Merged)
		if err := export.WriteJSON(filepath.Join(dir, seriesFileName), summaries); err != nil {
			return err
		}
	}
	return nil
}

// fileName replaces characters that are unsafe in file names.
func fileName(label string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, label)
}
