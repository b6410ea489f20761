package neo4j

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/noderecon/common/types"
	"github.com/spacemeshos/noderecon/log/logtest"
	"github.com/spacemeshos/noderecon/source"
)

var _ source.Source = (*Source)(nil)

func TestConvertProps(t *testing.T) {
	observed := time.Date(2024, 1, 26, 10, 11, 12, 0, time.FixedZone("CET", 3600))
	local := neo4j.LocalDateTime(time.Date(2024, 1, 26, 10, 11, 12, 0, time.Local))

	got := convertProps(map[string]any{
		"id":                        "abc",
		"address":                   "1.1.1.1",
		"is_eth_handshake_complete": true,
		"port":                      int64(30303),
		"last_time":                 observed,
		"first_seen":                local,
		"caps":                      []any{"eth/66", "eth/67"},
		"meta":                      map[string]any{"seen": local},
	})
	require.Equal(t, types.RawRecord{
		"id":                        "abc",
		"address":                   "1.1.1.1",
		"is_eth_handshake_complete": true,
		"port":                      int64(30303),
		"last_time":                 observed,
		"first_seen":                time.Date(2024, 1, 26, 10, 11, 12, 0, time.UTC),
		"caps":                      []any{"eth/66", "eth/67"},
		"meta":                      map[string]any{"seen": time.Date(2024, 1, 26, 10, 11, 12, 0, time.UTC)},
	}, got)
}

func TestToRecord(t *testing.T) {
	rec, err := toRecord(neo4j.Node{Props: map[string]any{"id": "x"}})
	require.NoError(t, err)
	require.Equal(t, types.RawRecord{"id": "x"}, rec)

	rec, err = toRecord(map[string]any{"id": "y"})
	require.NoError(t, err)
	require.Equal(t, types.RawRecord{"id": "y"}, rec)

	_, err = toRecord(int64(1))
	require.ErrorIs(t, err, errUnexpectedValue)
}

func TestDefaultQuery(t *testing.T) {
	src := New("db1", Config{URI: "bolt://localhost:7687"})
	require.Equal(t, DefaultQuery, src.cfg.Query)
	require.Equal(t, "db1", src.Label())
}

func TestFetchUnreachable(t *testing.T) {
	src := New("db1", Config{URI: "bolt://127.0.0.1:1"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := src.Fetch(ctx)
	require.Error(t, err)
}

func TestFetchInvalidURI(t *testing.T) {
	_, err := New("db1", Config{URI: "ftp://nowhere"}).Fetch(context.Background())
	require.ErrorContains(t, err, "create driver")
}

// TestFetch runs against a live database, e.g.
// NEO4J_URI=bolt://localhost:7687 NEO4J_USER=neo4j NEO4J_PASSWORD=secret.
func TestFetch(t *testing.T) {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI is not set")
	}
	src := New("live", Config{
		URI:      uri,
		User:     os.Getenv("NEO4J_USER"),
		Password: os.Getenv("NEO4J_PASSWORD"),
	}, WithLogger(logtest.New(t)))
	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	for _, rec := range records {
		require.Contains(t, rec, types.FieldID)
	}
}
