package sql

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testURI(tb testing.TB) string {
	tb.Helper()
	return "file:" + filepath.Join(tb.TempDir(), "snapshot.sql")
}

func createTestTable(tb testing.TB, db Executor) {
	tb.Helper()
	_, err := db.Exec("create table testing1 (id varchar primary key, field int)", nil, nil)
	require.NoError(tb, err)
}

func TestNoConnection(t *testing.T) {
	db := InMemory()
	createTestTable(t, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := db.WithTx(ctx, func(*Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrNoConnection)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)

	require.NoError(t, db.Close())
	_, err = db.Exec("select 1 from testing1", nil, nil)
	require.ErrorIs(t, err, ErrNoConnection)
	err = db.WithTx(context.Background(), func(*Tx) error { return nil })
	require.ErrorIs(t, err, ErrNoConnection)
}

func TestOpenPoolSize(t *testing.T) {
	_, err := Open(testURI(t), WithConnections(0))
	require.ErrorContains(t, err, "at least one connection")

	db, err := Open(testURI(t), WithConnections(2))
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestWithTxRollback(t *testing.T) {
	db := InMemory()
	createTestTable(t, db)

	errAbort := errors.New("abort")
	err := db.WithTx(context.Background(), func(tx *Tx) error {
		_, err := tx.Exec("insert into testing1(id, field) values ('a', 1)", nil, nil)
		require.NoError(t, err)
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	require.NoError(t, db.WithTx(context.Background(), func(tx *Tx) error {
		_, err := tx.Exec("insert into testing1(id, field) values ('b', 2)", nil, nil)
		return err
	}))

	var ids []string
	_, err = db.Exec("select id from testing1", nil, func(stmt *Statement) bool {
		ids = append(ids, stmt.ColumnText(0))
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, ids)
}

func TestObjectExists(t *testing.T) {
	db := InMemory()
	createTestTable(t, db)
	_, err := db.Exec("insert into testing1(id, field) values ('a', 1)", nil, nil)
	require.NoError(t, err)
	_, err = db.Exec("insert into testing1(id, field) values ('a', 2)", nil, nil)
	require.ErrorIs(t, err, ErrObjectExists)
}

func TestDecoderStopsEarly(t *testing.T) {
	db := InMemory()
	createTestTable(t, db)
	for i := range 5 {
		_, err := db.Exec("insert into testing1(id, field) values (?1, ?2)", func(stmt *Statement) {
			stmt.BindText(1, fmt.Sprint(i))
			stmt.BindInt64(2, int64(i))
		}, nil)
		require.NoError(t, err)
	}
	seen := 0
	rows, err := db.Exec("select field from testing1", nil, func(*Statement) bool {
		seen++
		return seen < 2
	})
	require.NoError(t, err)
	require.Equal(t, 2, rows)
}

func TestMigrationsApplied(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	uri := testURI(t)
	db, err := Open(uri, WithLogger(zap.New(core)))
	require.NoError(t, err)
	version, err := Version(db)
	require.NoError(t, err)
	require.Equal(t, 1, version)
	require.Equal(t, 1, logs.FilterMessage("applied migration").Len())

	for _, table := range []string{"peers", "runs", "run_sources", "run_subsets", "run_comparisons"} {
		rows, err := db.Exec("select name from sqlite_master where type = 'table' and name = ?1",
			func(stmt *Statement) { stmt.BindText(1, table) }, nil)
		require.NoError(t, err)
		require.Equal(t, 1, rows, table)
	}
	var columns []string
	_, err = db.Exec("select name from pragma_table_info('peers')", nil, func(stmt *Statement) bool {
		columns = append(columns, stmt.ColumnText(0))
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []string{"source", "seq", "record", "imported"}, columns)

	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	// reopening doesn't apply anything
	db, err = Open(uri, WithLogger(zap.New(core)))
	require.NoError(t, err)
	require.Equal(t, 1, logs.FilterMessage("applied migration").Len())
	require.NoError(t, db.Close())
}

func TestDatabaseTooNew(t *testing.T) {
	uri := testURI(t)
	db, err := Open(uri)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 100;", nil, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(uri)
	require.ErrorIs(t, err, ErrTooNew)

	db, err = Open(uri, WithMigrationsDisabled())
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestLatencyMetering(t *testing.T) {
	plain := InMemory(WithMigrationsDisabled())
	createTestTable(t, plain)
	require.Zero(t, testutil.CollectAndCount(queryDuration))

	db := InMemory(WithMigrationsDisabled(), WithLatencyMetering(true))
	createTestTable(t, db)
	_, err := db.Exec("select 1", nil, nil)
	require.NoError(t, err)
	require.NoError(t, db.WithTx(context.Background(), func(tx *Tx) error {
		_, err := tx.Exec("insert into testing1(id, field) values ('a', 1)", nil, nil)
		return err
	}))
	require.Equal(t, 3, testutil.CollectAndCount(queryDuration))
}

func TestStatementKind(t *testing.T) {
	for _, tc := range []struct {
		query, kind string
	}{
		{"select 1", "select"},
		{"  INSERT into peers values (?1)", "insert"},
		{"\nCREATE TABLE peers\n(", "create"},
		{"vacuum", "vacuum"},
		{"PRAGMA user_version;", "pragma"},
		{"COMMIT;", "commit"},
		{"", "empty"},
	} {
		t.Run(tc.kind, func(t *testing.T) {
			require.Equal(t, tc.kind, statementKind(tc.query))
		})
	}
}
