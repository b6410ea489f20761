package peers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/noderecon/common/types"
	"github.com/spacemeshos/noderecon/normalizer"
	"github.com/spacemeshos/noderecon/sql"
)

func TestReplaceAndRead(t *testing.T) {
	db := sql.InMemory()
	imported := time.Date(2024, 1, 26, 10, 0, 0, 0, time.UTC)
	observed := time.Date(2024, 1, 25, 8, 30, 0, 0, time.UTC)

	records := []types.RawRecord{
		{"id": "n1", "address": "1.1.1.1", "last_time": observed, "is_inbound": true},
		{"id": "n2", "is_dyndial": "true", "port": 30303},
		{"address": "3.3.3.3"},
	}
	require.NoError(t, Replace(context.Background(), db, "db1", imported, records))

	got, err := BySource(db, "db1")
	require.NoError(t, err)
	require.Equal(t, []types.RawRecord{
		{"id": "n1", "address": "1.1.1.1", "last_time": "2024-01-25T08:30:00Z", "is_inbound": true},
		{"id": "n2", "is_dyndial": "true", "port": json.Number("30303")},
		{"address": "3.3.3.3"},
	}, got)

	_, err = BySource(db, "db2")
	require.ErrorIs(t, err, sql.ErrNotFound)

	// second import replaces the first one
	require.NoError(t, Replace(context.Background(), db, "db1", imported.Add(time.Hour), records[:1]))
	got, err = BySource(db, "db1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	sources, err := Sources(db)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	require.Equal(t, "db1", sources[0].Label)
	require.Equal(t, 1, sources[0].Records)
	require.True(t, sources[0].Imported.Equal(imported.Add(time.Hour)))
}

func TestLargeIdentifiersStayDistinct(t *testing.T) {
	db := sql.InMemory()
	records := []types.RawRecord{
		{"id": int64(9007199254740993)},
		{"id": int64(9007199254740992)},
	}
	require.NoError(t, Replace(context.Background(), db, "db1", time.Now(), records))

	got, err := BySource(db, "db1")
	require.NoError(t, err)
	require.Equal(t, []types.RawRecord{
		{"id": json.Number("9007199254740993")},
		{"id": json.Number("9007199254740992")},
	}, got)

	collection, rep := normalizer.New().NormalizeAll("db1", got)
	require.Equal(t, 2, rep.Kept)
	require.ElementsMatch(t, []string{"9007199254740993", "9007199254740992"},
		[]string{collection.Records[0].ID, collection.Records[1].ID})
}

func TestReplaceIsAtomic(t *testing.T) {
	db := sql.InMemory()
	imported := time.Now()
	require.NoError(t, Replace(context.Background(), db, "db1", imported, []types.RawRecord{{"id": "n1"}}))

	bad := []types.RawRecord{{"id": "n2"}, {"id": make(chan int)}}
	require.Error(t, Replace(context.Background(), db, "db1", imported, bad))

	got, err := BySource(db, "db1")
	require.NoError(t, err)
	require.Equal(t, []types.RawRecord{{"id": "n1"}}, got)
}

func TestAddDuplicate(t *testing.T) {
	db := sql.InMemory()
	require.NoError(t, Add(db, "db1", 0, time.Now(), types.RawRecord{"id": "n1"}))
	err := Add(db, "db1", 0, time.Now(), types.RawRecord{"id": "n1"})
	require.True(t, errors.Is(err, sql.ErrObjectExists), err)
}

func TestDelete(t *testing.T) {
	db := sql.InMemory()
	for i := range 3 {
		require.NoError(t, Add(db, "db1", i, time.Now(), types.RawRecord{"id": i}))
	}
	require.NoError(t, Add(db, "db2", 0, time.Now(), types.RawRecord{"id": 1}))

	n, err := Delete(db, "db1")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	sources, err := Sources(db)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	require.Equal(t, "db2", sources[0].Label)
}
