package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/noderecon/config"
)

func writeFile(tb testing.TB, path, content string) {
	tb.Helper()
	require.NoError(tb, os.WriteFile(path, []byte(content), 0o600))
}

func execute(tb testing.TB, args ...string) (string, error) {
	tb.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoadConfigFlagsTakePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
main:
  data-dir: from-file
  output-dir: out-file
  fetch-timeout: 10s
normalizer:
  id-field: node_id
`)
	cfg := config.DefaultConfig()
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flagSet, &cfg)
	require.NoError(t, flagSet.Parse([]string{"--config", path, "--data-dir", "from-flag"}))
	require.NoError(t, loadConfig(flagSet, &cfg))

	require.Equal(t, "from-flag", cfg.DataDir)
	require.Equal(t, "out-file", cfg.OutputDir)
	require.Equal(t, "node_id", cfg.Normalizer.IDField)
	require.Equal(t, "10s", cfg.FetchTimeout.String())
	require.True(t, cfg.Normalizer.Dedup)
}

func TestLoadConfigUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "main:\n  data-folder: x\n")
	cfg := config.DefaultConfig()
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flagSet, &cfg)
	require.NoError(t, flagSet.Parse([]string{"-c", path}))
	require.Error(t, loadConfig(flagSet, &cfg))
}

func TestImportRunAndHistory(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "dump.json")
	writeFile(t, dump, "{\"id\": \"a\", \"last_time\": \"2024-01-26T10:00:00Z\"}\n{\"id\": \"b\"}\n")
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, fmt.Sprintf(`
main:
  data-dir: %s
  output-dir: %s
  export-series: false
sources:
  - label: db1
    kind: snapshot
`, filepath.Join(dir, "data"), filepath.Join(dir, "out")))

	out, err := execute(t, "import", "-c", cfgPath, "db1", dump)
	require.NoError(t, err)
	require.Contains(t, out, "imported 2 records as db1")

	out, err = execute(t, "run", "-c", cfgPath)
	require.NoError(t, err)
	require.Contains(t, out, "MERGED 2 distinct peers")
	require.FileExists(t, filepath.Join(dir, "out", "db1.csv"))
	require.NoFileExists(t, filepath.Join(dir, "out", "series.json"))

	out, err = execute(t, "runs", "-c", cfgPath, "--limit", "5")
	require.NoError(t, err)
	require.Contains(t, out, "merged")

	_, err = execute(t, "runs", "-c", cfgPath, "--limit", "0")
	require.ErrorContains(t, err, "invalid limit")
}

func TestCompareRequiresPeerLists(t *testing.T) {
	_, err := execute(t, "compare", "--data-dir", t.TempDir())
	require.ErrorContains(t, err, "no peer lists")
}

func TestImportArgs(t *testing.T) {
	_, err := execute(t, "import", "--data-dir", t.TempDir(), "db1")
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	version, commit := Version, Commit
	t.Cleanup(func() { Version, Commit = version, commit })
	Version, Commit = "v0.1.0", "abcdef"

	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Equal(t, "v0.1.0+abcdef\n", out)
}
