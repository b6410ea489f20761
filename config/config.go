// Package config contains noderecon configuration definitions.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	defaultDataDirName = "noderecon"
	snapshotFileName   = "snapshot.sql"
)

// Source kinds.
const (
	SourceNeo4j    = "neo4j"
	SourceSnapshot = "snapshot"
)

// Config defines the top level configuration for noderecon.
type Config struct {
	BaseConfig `mapstructure:"main"`
	Logging    LoggerConfig     `mapstructure:"logging"`
	Normalizer NormalizerConfig `mapstructure:"normalizer"`
	Sources    []SourceConfig   `mapstructure:"sources"`
	PeerLists  []PeerListConfig `mapstructure:"peerlists"`
	HTTP       HTTPConfig       `mapstructure:"http"`
}

// BaseConfig defines the default configuration options.
type BaseConfig struct {
	DataDir    string `mapstructure:"data-dir"`
	ConfigFile string `mapstructure:"config"`
	OutputDir  string `mapstructure:"output-dir"`

	// Snapshot is a path to the sqlite database with imported records and run history.
	// Defaults to <data-dir>/snapshot.sql.
	Snapshot string `mapstructure:"snapshot"`
	// DatabaseConnections is the size of the snapshot connection pool.
	DatabaseConnections int `mapstructure:"db-connections"`
	// DatabaseLatencyMetering records the duration of every snapshot statement.
	DatabaseLatencyMetering bool `mapstructure:"db-latency-metering"`

	CollectMetrics bool          `mapstructure:"metrics"`
	MetricsAddress string        `mapstructure:"metrics-address"`
	MetricsPushURL string        `mapstructure:"metrics-push"`
	ExportCSV      bool          `mapstructure:"export-csv"`
	ExportSeries   bool          `mapstructure:"export-series"`
	PersistRun     bool          `mapstructure:"persist-run"`
	EstimateUnion  bool          `mapstructure:"estimate-union"`
	FetchTimeout   time.Duration `mapstructure:"fetch-timeout"`
}

// NormalizerConfig controls conversion of raw records.
type NormalizerConfig struct {
	// IDField is the name of the attribute holding the unique peer identifier.
	IDField string `mapstructure:"id-field"`
	// Dedup collapses records sharing an identifier within one source.
	Dedup bool `mapstructure:"dedup"`
}

// SourceConfig describes one database to read peer records from.
type SourceConfig struct {
	Label    string `mapstructure:"label"`
	Kind     string `mapstructure:"kind"`
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Query    string `mapstructure:"query"`
}

// PeerListConfig describes an external peer list to compare against.
type PeerListConfig struct {
	Label  string `mapstructure:"label"`
	Path   string `mapstructure:"path"`
	URL    string `mapstructure:"url"`
	Format string `mapstructure:"format"`
	// Column selects the field for the pipe separated format.
	Column int `mapstructure:"column"`
	// Key selects which record attribute the list is compared with: "ip" or "id".
	Key string `mapstructure:"key"`
}

// HTTPConfig controls fetching of remote peer lists.
type HTTPConfig struct {
	MaxRetries   int           `mapstructure:"max-retries"`
	RetryWaitMin time.Duration `mapstructure:"retry-wait-min"`
	RetryWaitMax time.Duration `mapstructure:"retry-wait-max"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaseConfig: BaseConfig{
			DataDir:             filepath.Join(".", defaultDataDirName),
			OutputDir:           ".",
			DatabaseConnections: 16,
			MetricsAddress:      "127.0.0.1:1010",
			ExportCSV:           true,
			ExportSeries:        true,
			PersistRun:          true,
			FetchTimeout:        5 * time.Minute,
		},
		Logging: defaultLoggingConfig(),
		Normalizer: NormalizerConfig{
			IDField: "id",
			Dedup:   true,
		},
		HTTP: HTTPConfig{
			MaxRetries:   5,
			RetryWaitMin: time.Second,
			RetryWaitMax: 10 * time.Second,
			Timeout:      30 * time.Second,
		},
	}
}

// SnapshotPath returns the location of the snapshot database.
func (cfg *BaseConfig) SnapshotPath() string {
	if cfg.Snapshot != "" {
		return cfg.Snapshot
	}
	return filepath.Join(cfg.DataDir, snapshotFileName)
}

// Validate checks that the sources and peer lists are usable.
func (cfg *Config) Validate() error {
	if cfg.DatabaseConnections < 1 {
		return fmt.Errorf("db-connections must be positive, got %d", cfg.DatabaseConnections)
	}
	seen := make(map[string]struct{}, len(cfg.Sources))
	for i, src := range cfg.Sources {
		if src.Label == "" {
			return fmt.Errorf("source %d: missing label", i)
		}
		if _, exist := seen[src.Label]; exist {
			return fmt.Errorf("source %d: duplicate label %q", i, src.Label)
		}
		seen[src.Label] = struct{}{}
		switch src.Kind {
		case SourceNeo4j:
			if src.URI == "" {
				return fmt.Errorf("source %q: missing uri", src.Label)
			}
		case SourceSnapshot:
		default:
			return fmt.Errorf("source %q: unknown kind %q", src.Label, src.Kind)
		}
	}
	for i, pl := range cfg.PeerLists {
		if pl.Label == "" {
			return fmt.Errorf("peer list %d: missing label", i)
		}
		if (pl.Path == "") == (pl.URL == "") {
			return fmt.Errorf("peer list %q: exactly one of path or url must be set", pl.Label)
		}
		if pl.Key != "ip" && pl.Key != "id" {
			return fmt.Errorf("peer list %q: key must be ip or id, got %q", pl.Label, pl.Key)
		}
	}
	if cfg.Normalizer.IDField == "" {
		return fmt.Errorf("normalizer: empty id field")
	}
	return nil
}

// LoadConfig reads configuration file into vip.
func LoadConfig(fileLocation string, vip *viper.Viper) error {
	if fileLocation == "" {
		return nil
	}
	vip.SetConfigFile(fileLocation)
	if err := vip.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %w", err)
	}
	return nil
}

// Decode unmarshals everything loaded into vip on top of cfg.
func Decode(vip *viper.Viper, cfg *Config) error {
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)
	opts := []viper.DecoderConfigOption{
		viper.DecodeHook(hook),
		withIgnoreUntagged(),
		withErrorUnused(),
	}
	if err := vip.Unmarshal(cfg, opts...); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

func withIgnoreUntagged() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.IgnoreUntaggedFields = true
	}
}

func withErrorUnused() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.ErrorUnused = true
	}
}
