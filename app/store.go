package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/spacemeshos/noderecon/common/types"
	"github.com/spacemeshos/noderecon/log"
	"github.com/spacemeshos/noderecon/reconcile"
	"github.com/spacemeshos/noderecon/report"
	"github.com/spacemeshos/noderecon/source"
	"github.com/spacemeshos/noderecon/source/snapshot"
	"github.com/spacemeshos/noderecon/sql"
	"github.com/spacemeshos/noderecon/sql/peers"
	"github.com/spacemeshos/noderecon/sql/runs"
)

// Import replaces the snapshot of label with records read from path. The dump
// is either a json array of objects or one json object per line.
func (app *App) Import(ctx context.Context, label, path string) (int, error) {
	if app.db == nil {
		return 0, errNotInitialized
	}
	f, err := app.fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()
	records, err := readRecords(f)
	if err != nil {
		return 0, fmt.Errorf("read dump %s: %w", path, err)
	}
	if err := peers.Replace(ctx, app.db, label, app.clock.Now(), records); err != nil {
		return 0, fmt.Errorf("import %s: %w", label, err)
	}
	logger := app.addLogger(StoreLogger, app.Config.Logging.StoreLoggerLevel)
	logger.Info("imported snapshot",
		log.Source(label),
		zap.String("path", path),
		log.Records(len(records)),
	)
	if err := sql.Vacuum(app.db); err != nil {
		logger.Warn("vacuum failed", zap.Error(err))
	}
	return len(records), nil
}

func readRecords(r io.Reader) ([]types.RawRecord, error) {
	br := bufio.NewReader(r)
	for {
		c, _, err := br.ReadRune()
		if errors.Is(err, io.EOF) {
			return nil, nil
		} else if err != nil {
			return nil, err
		}
		if unicode.IsSpace(c) {
			continue
		}
		if err := br.UnreadRune(); err != nil {
			return nil, err
		}
		break
	}
	dec := json.NewDecoder(br)
	dec.UseNumber()
	var records []types.RawRecord
	if c, _ := br.Peek(1); len(c) == 1 && c[0] == '[' {
		if err := dec.Decode(&records); err != nil {
			return nil, err
		}
		return records, nil
	}
	for {
		var record types.RawRecord
		if err := dec.Decode(&record); errors.Is(err, io.EOF) {
			return records, nil
		} else if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records), err)
		}
		records = append(records, record)
	}
}

// Compare reconciles imported snapshots and compares them with the configured
// peer lists without contacting any database. All imported snapshots are used
// if labels are empty.
func (app *App) Compare(ctx context.Context, labels ...string) ([]runs.ListComparison, error) {
	if app.db == nil {
		return nil, errNotInitialized
	}
	if len(app.Config.PeerLists) == 0 {
		return nil, errors.New("no peer lists configured")
	}
	if len(labels) == 0 {
		imported, err := peers.Sources(app.db)
		if err != nil {
			return nil, err
		}
		labels = lo.Map(imported, func(info peers.SourceInfo, _ int) string { return info.Label })
	}
	sources := lo.Map(labels, func(label string, _ int) source.Source {
		return snapshot.New(app.db, label)
	})
	fetched, err := source.FetchAll(ctx, app.addLogger(SourceLogger, app.Config.Logging.SourceLoggerLevel), sources)
	if err != nil {
		return nil, err
	}
	collections := app.normalize(fetched, &Result{Run: &runs.Run{}, Report: &report.Data{}})
	merged, _, err := reconcile.Union(collections)
	if err != nil {
		return nil, fmt.Errorf("union: %w", err)
	}
	comparisons := app.compareLists(ctx, merged)
	if err := report.WriteComparisons(app.out, comparisons); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	return comparisons, nil
}

// Runs prints up to limit most recent runs.
func (app *App) Runs(limit int) ([]*runs.Run, error) {
	if app.db == nil {
		return nil, errNotInitialized
	}
	history, err := runs.List(app.db, limit)
	if err != nil {
		return nil, err
	}
	if err := report.WriteRuns(app.out, history, app.clock.Now()); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	return history, nil
}
