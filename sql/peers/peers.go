// Package peers stores raw peer records imported from sources, so that
// reconciliation can be repeated without access to the original databases.
package peers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spacemeshos/noderecon/common/types"
	"github.com/spacemeshos/noderecon/sql"
)

// SourceInfo describes an imported source.
type SourceInfo struct {
	Label    string
	Records  int
	Imported time.Time
}

// Add stores a raw record at position seq of the source.
func Add(db sql.Executor, source string, seq int, imported time.Time, record types.RawRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record %s/%d: %w", source, seq, err)
	}
	_, err = db.Exec(`insert into peers (source, seq, record, imported)
	values (?1, ?2, ?3, ?4);`,
		func(stmt *sql.Statement) {
			stmt.BindText(1, source)
			stmt.BindInt64(2, int64(seq))
			stmt.BindBytes(3, data)
			stmt.BindInt64(4, imported.UnixNano())
		}, nil,
	)
	if err != nil {
		return fmt.Errorf("insert record %s/%d: %w", source, seq, err)
	}
	return nil
}

// Delete removes all records of the source.
func Delete(db sql.Executor, source string) (int, error) {
	rows, err := db.Exec("delete from peers where source = ?1 returning seq;",
		func(stmt *sql.Statement) {
			stmt.BindText(1, source)
		}, nil)
	if err != nil {
		return 0, fmt.Errorf("delete source %s: %w", source, err)
	}
	return rows, nil
}

// Replace atomically substitutes all records of the source.
func Replace(ctx context.Context, db *sql.Database, source string, imported time.Time, records []types.RawRecord) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := Delete(tx, source); err != nil {
			return err
		}
		for i, record := range records {
			if err := Add(tx, source, i, imported, record); err != nil {
				return err
			}
		}
		return nil
	})
}

// BySource returns records of the source in import order.
func BySource(db sql.Executor, source string) ([]types.RawRecord, error) {
	var (
		records []types.RawRecord
		decErr  error
	)
	rows, err := db.Exec("select record from peers where source = ?1 order by seq;",
		func(stmt *sql.Statement) {
			stmt.BindText(1, source)
		}, func(stmt *sql.Statement) bool {
			buf := make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, buf)
			record, err := decodeRecord(buf)
			if err != nil {
				decErr = err
				return false
			}
			records = append(records, record)
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("records of %s: %w", source, err)
	}
	if decErr != nil {
		return nil, fmt.Errorf("decode record of %s: %w", source, decErr)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: source %s", sql.ErrNotFound, source)
	}
	return records, nil
}

// decodeRecord keeps numbers as json.Number so that large integer
// identifiers survive the round trip.
func decodeRecord(buf []byte) (types.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	var record types.RawRecord
	if err := dec.Decode(&record); err != nil {
		return nil, err
	}
	return record, nil
}

// Sources lists imported sources ordered by label.
func Sources(db sql.Executor) ([]SourceInfo, error) {
	var rst []SourceInfo
	_, err := db.Exec(`select source, count(*), max(imported) from peers
	group by source order by source;`, nil,
		func(stmt *sql.Statement) bool {
			rst = append(rst, SourceInfo{
				Label:    stmt.ColumnText(0),
				Records:  stmt.ColumnInt(1),
				Imported: time.Unix(0, stmt.ColumnInt64(2)),
			})
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return rst, nil
}
