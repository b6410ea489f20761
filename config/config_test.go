package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const testConfig = `
main:
  data-dir: /var/lib/noderecon
  fetch-timeout: 90s
  export-csv: false
  db-connections: 4
  db-latency-metering: true
normalizer:
  id-field: address
sources:
  - label: Database 1
    kind: neo4j
    uri: bolt://127.0.0.1:7687
    user: neo4j
    password: secret
  - label: Database 2
    kind: snapshot
peerlists:
  - label: ethernodes
    path: results0126.txt
    format: pipe
    column: 2
    key: ip
http:
  max-retries: 2
`

func writeConfig(tb testing.TB, content string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "config.yaml")
	require.NoError(tb, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAndDecode(t *testing.T) {
	vip := viper.New()
	require.NoError(t, LoadConfig(writeConfig(t, testConfig), vip))

	cfg := DefaultConfig()
	require.NoError(t, Decode(vip, &cfg))
	require.NoError(t, cfg.Validate())

	require.Equal(t, "/var/lib/noderecon", cfg.DataDir)
	require.Equal(t, filepath.Join("/var/lib/noderecon", "snapshot.sql"), cfg.SnapshotPath())
	require.Equal(t, 90*time.Second, cfg.FetchTimeout)
	require.False(t, cfg.ExportCSV)
	require.Equal(t, 4, cfg.DatabaseConnections)
	require.True(t, cfg.DatabaseLatencyMetering)
	require.True(t, cfg.ExportSeries, "defaults are kept for keys missing in the file")
	require.Equal(t, "address", cfg.Normalizer.IDField)
	require.True(t, cfg.Normalizer.Dedup)

	require.Len(t, cfg.Sources, 2)
	require.Equal(t, SourceConfig{
		Label:    "Database 1",
		Kind:     SourceNeo4j,
		URI:      "bolt://127.0.0.1:7687",
		User:     "neo4j",
		Password: "secret",
	}, cfg.Sources[0])
	require.Equal(t, SourceSnapshot, cfg.Sources[1].Kind)

	require.Len(t, cfg.PeerLists, 1)
	require.Equal(t, 2, cfg.PeerLists[0].Column)
	require.Equal(t, 2, cfg.HTTP.MaxRetries)
	require.Equal(t, time.Second, cfg.HTTP.RetryWaitMin)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	vip := viper.New()
	require.NoError(t, LoadConfig(writeConfig(t, "main:\n  data-folder: x\n"), vip))
	cfg := DefaultConfig()
	require.ErrorContains(t, Decode(vip, &cfg), "data-folder")
}

func TestLoadConfigMissingFile(t *testing.T) {
	vip := viper.New()
	require.ErrorContains(t, LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), vip), "failed to read config file")
	require.NoError(t, LoadConfig("", vip))
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		desc   string
		modify func(*Config)
		err    string
	}{
		{
			desc: "empty connection pool",
			modify: func(cfg *Config) {
				cfg.DatabaseConnections = 0
			},
			err: "db-connections must be positive",
		},
		{
			desc: "missing label",
			modify: func(cfg *Config) {
				cfg.Sources = []SourceConfig{{Kind: SourceSnapshot}}
			},
			err: "missing label",
		},
		{
			desc: "duplicate label",
			modify: func(cfg *Config) {
				cfg.Sources = []SourceConfig{
					{Label: "a", Kind: SourceSnapshot},
					{Label: "a", Kind: SourceSnapshot},
				}
			},
			err: "duplicate label",
		},
		{
			desc: "unknown kind",
			modify: func(cfg *Config) {
				cfg.Sources = []SourceConfig{{Label: "a", Kind: "mongo"}}
			},
			err: "unknown kind",
		},
		{
			desc: "neo4j without uri",
			modify: func(cfg *Config) {
				cfg.Sources = []SourceConfig{{Label: "a", Kind: SourceNeo4j}}
			},
			err: "missing uri",
		},
		{
			desc: "peer list with path and url",
			modify: func(cfg *Config) {
				cfg.PeerLists = []PeerListConfig{{Label: "l", Path: "p", URL: "u", Key: "ip"}}
			},
			err: "exactly one of path or url",
		},
		{
			desc: "peer list bad key",
			modify: func(cfg *Config) {
				cfg.PeerLists = []PeerListConfig{{Label: "l", Path: "p", Key: "enode"}}
			},
			err: "key must be ip or id",
		},
		{
			desc: "empty id field",
			modify: func(cfg *Config) {
				cfg.Normalizer.IDField = ""
			},
			err: "empty id field",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			require.ErrorContains(t, cfg.Validate(), tc.err)
		})
	}
}
