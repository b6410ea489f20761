// Package runs keeps the history of reconciliation runs.
package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spacemeshos/noderecon/common/types"
	"github.com/spacemeshos/noderecon/compare"
	"github.com/spacemeshos/noderecon/sql"
)

// SourceStats is the normalization outcome of one source.
type SourceStats struct {
	Label   string
	Input   int
	Kept    int
	Dropped int
}

// ListComparison is the comparison of merged records with one peer list.
type ListComparison struct {
	List string
	// Key is the record attribute compared with the list.
	Key string
	compare.Comparison
}

// Run is a persisted reconciliation run.
type Run struct {
	ID       uuid.UUID
	Started  time.Time
	Finished time.Time
	Sources  []SourceStats
	// Merged is the number of distinct identifiers across all sources.
	Merged int
	// Estimate is the approximate number of distinct identifiers, zero if not computed.
	Estimate    uint64
	Subsets     []types.SubsetCount
	Comparisons []ListComparison
}

// Add stores the run. A random id is assigned if run.ID is not set.
func Add(ctx context.Context, db *sql.Database, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	id := run.ID.String()
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`insert into runs (id, started, finished, merged, estimate)
		values (?1, ?2, ?3, ?4, ?5);`,
			func(stmt *sql.Statement) {
				stmt.BindText(1, id)
				stmt.BindInt64(2, run.Started.UnixNano())
				stmt.BindInt64(3, run.Finished.UnixNano())
				stmt.BindInt64(4, int64(run.Merged))
				if run.Estimate > 0 {
					stmt.BindInt64(5, int64(run.Estimate))
				} else {
					stmt.BindNull(5)
				}
			}, nil); err != nil {
			return fmt.Errorf("insert run %s: %w", id, err)
		}
		for i, src := range run.Sources {
			if _, err := tx.Exec(`insert into run_sources (run_id, seq, label, input, kept, dropped)
			values (?1, ?2, ?3, ?4, ?5, ?6);`,
				func(stmt *sql.Statement) {
					stmt.BindText(1, id)
					stmt.BindInt64(2, int64(i))
					stmt.BindText(3, src.Label)
					stmt.BindInt64(4, int64(src.Input))
					stmt.BindInt64(5, int64(src.Kept))
					stmt.BindInt64(6, int64(src.Dropped))
				}, nil); err != nil {
				return fmt.Errorf("insert run source %s: %w", src.Label, err)
			}
		}
		for i, subset := range run.Subsets {
			members, err := json.Marshal(subset.Indices)
			if err != nil {
				return err
			}
			labels, err := json.Marshal(subset.Labels)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(`insert into run_subsets (run_id, seq, members, labels, shared)
			values (?1, ?2, ?3, ?4, ?5);`,
				func(stmt *sql.Statement) {
					stmt.BindText(1, id)
					stmt.BindInt64(2, int64(i))
					stmt.BindBytes(3, members)
					stmt.BindBytes(4, labels)
					stmt.BindInt64(5, int64(subset.Count))
				}, nil); err != nil {
				return fmt.Errorf("insert run subset %s: %w", subset.Name(), err)
			}
		}
		for _, cmp := range run.Comparisons {
			if _, err := tx.Exec(`insert into run_comparisons
			(run_id, list, attr, overlap, unique_to_reference, unique_to_external)
			values (?1, ?2, ?3, ?4, ?5, ?6);`,
				func(stmt *sql.Statement) {
					stmt.BindText(1, id)
					stmt.BindText(2, cmp.List)
					stmt.BindText(3, cmp.Key)
					stmt.BindInt64(4, int64(cmp.Overlap))
					stmt.BindInt64(5, int64(cmp.UniqueToReference))
					stmt.BindInt64(6, int64(cmp.UniqueToExternal))
				}, nil); err != nil {
				return fmt.Errorf("insert run comparison %s: %w", cmp.List, err)
			}
		}
		return nil
	})
}

// Get loads a run with all its details.
func Get(db sql.Executor, id uuid.UUID) (*Run, error) {
	run := &Run{ID: id}
	rows, err := db.Exec("select started, finished, merged, estimate from runs where id = ?1;",
		func(stmt *sql.Statement) {
			stmt.BindText(1, id.String())
		}, func(stmt *sql.Statement) bool {
			run.Started = time.Unix(0, stmt.ColumnInt64(0))
			run.Finished = time.Unix(0, stmt.ColumnInt64(1))
			run.Merged = stmt.ColumnInt(2)
			if !sql.IsNull(stmt, 3) {
				run.Estimate = uint64(stmt.ColumnInt64(3))
			}
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: run %s", sql.ErrNotFound, id)
	}
	if err := loadDetails(db, run); err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

func loadDetails(db sql.Executor, run *Run) error {
	id := run.ID.String()
	enc := func(stmt *sql.Statement) {
		stmt.BindText(1, id)
	}
	if _, err := db.Exec(`select label, input, kept, dropped from run_sources
	where run_id = ?1 order by seq;`, enc,
		func(stmt *sql.Statement) bool {
			run.Sources = append(run.Sources, SourceStats{
				Label:   stmt.ColumnText(0),
				Input:   stmt.ColumnInt(1),
				Kept:    stmt.ColumnInt(2),
				Dropped: stmt.ColumnInt(3),
			})
			return true
		}); err != nil {
		return fmt.Errorf("sources: %w", err)
	}
	var decErr error
	if _, err := db.Exec(`select members, labels, shared from run_subsets
	where run_id = ?1 order by seq;`, enc,
		func(stmt *sql.Statement) bool {
			var subset types.SubsetCount
			if decErr = json.Unmarshal([]byte(stmt.ColumnText(0)), &subset.Indices); decErr != nil {
				return false
			}
			if decErr = json.Unmarshal([]byte(stmt.ColumnText(1)), &subset.Labels); decErr != nil {
				return false
			}
			subset.Count = stmt.ColumnInt(2)
			run.Subsets = append(run.Subsets, subset)
			return true
		}); err != nil {
		return fmt.Errorf("subsets: %w", err)
	}
	if decErr != nil {
		return fmt.Errorf("decode subset: %w", decErr)
	}
	if _, err := db.Exec(`select list, attr, overlap, unique_to_reference, unique_to_external
	from run_comparisons where run_id = ?1 order by list;`, enc,
		func(stmt *sql.Statement) bool {
			run.Comparisons = append(run.Comparisons, ListComparison{
				List: stmt.ColumnText(0),
				Key:  stmt.ColumnText(1),
				Comparison: compare.Comparison{
					Overlap:           stmt.ColumnInt(2),
					UniqueToReference: stmt.ColumnInt(3),
					UniqueToExternal:  stmt.ColumnInt(4),
				},
			})
			return true
		}); err != nil {
		return fmt.Errorf("comparisons: %w", err)
	}
	return nil
}

// List returns up to limit most recent runs, newest first.
func List(db sql.Executor, limit int) ([]*Run, error) {
	var (
		rst    []*Run
		decErr error
	)
	_, err := db.Exec("select id from runs order by started desc limit ?1;",
		func(stmt *sql.Statement) {
			stmt.BindInt64(1, int64(limit))
		}, func(stmt *sql.Statement) bool {
			var id uuid.UUID
			if id, decErr = uuid.Parse(stmt.ColumnText(0)); decErr != nil {
				return false
			}
			rst = append(rst, &Run{ID: id})
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if decErr != nil {
		return nil, fmt.Errorf("list runs: %w", decErr)
	}
	for i, run := range rst {
		full, err := Get(db, run.ID)
		if err != nil {
			return nil, err
		}
		rst[i] = full
	}
	return rst, nil
}
