package cmd

import (
	"github.com/spf13/pflag"

	"github.com/spacemeshos/noderecon/config"
)

// AddFlags adds noderecon flags to the flag set. Flag values are written
// directly to cfg.
func AddFlags(flagSet *pflag.FlagSet, cfg *config.Config) {
	/** ======================== BaseConfig Flags ========================== **/
	flagSet.StringVarP(&cfg.ConfigFile, "config", "c",
		cfg.ConfigFile, "load configuration from file")
	flagSet.StringVarP(&cfg.DataDir, "data-dir", "d",
		cfg.DataDir, "directory with the snapshot database and lock file")
	flagSet.StringVarP(&cfg.OutputDir, "output-dir", "o",
		cfg.OutputDir, "directory for exported csv and json files")
	flagSet.StringVar(&cfg.Snapshot, "snapshot",
		cfg.Snapshot, "path to the snapshot database (default <data-dir>/snapshot.sql)")
	flagSet.IntVar(&cfg.DatabaseConnections, "db-connections",
		cfg.DatabaseConnections, "size of the snapshot database connection pool")
	flagSet.BoolVar(&cfg.DatabaseLatencyMetering, "db-latency-metering",
		cfg.DatabaseLatencyMetering, "record duration of snapshot database statements")
	flagSet.BoolVar(&cfg.CollectMetrics, "metrics",
		cfg.CollectMetrics, "serve prometheus metrics while running")
	flagSet.StringVar(&cfg.MetricsAddress, "metrics-address",
		cfg.MetricsAddress, "address for the metrics server")
	flagSet.StringVar(&cfg.MetricsPushURL, "metrics-push",
		cfg.MetricsPushURL, "push metrics of every run to the pushgateway at this url")
	flagSet.BoolVar(&cfg.ExportCSV, "export-csv",
		cfg.ExportCSV, "write normalized records of every source and of the union as csv")
	flagSet.BoolVar(&cfg.ExportSeries, "export-series",
		cfg.ExportSeries, "write cumulative observation series as json")
	flagSet.BoolVar(&cfg.PersistRun, "persist-run",
		cfg.PersistRun, "store fetched records and run results in the snapshot database")
	flagSet.BoolVar(&cfg.EstimateUnion, "estimate-union",
		cfg.EstimateUnion, "estimate the number of distinct peers with hyperloglog")
	flagSet.DurationVar(&cfg.FetchTimeout, "fetch-timeout",
		cfg.FetchTimeout, "time limit for fetching all sources")

	/** ======================== Normalizer Flags ========================== **/
	flagSet.StringVar(&cfg.Normalizer.IDField, "id-field",
		cfg.Normalizer.IDField, "record attribute with the unique peer identifier")
	flagSet.BoolVar(&cfg.Normalizer.Dedup, "dedup",
		cfg.Normalizer.Dedup, "collapse records with the same identifier within a source")

	/** ======================== HTTP Flags ========================== **/
	flagSet.IntVar(&cfg.HTTP.MaxRetries, "http-max-retries",
		cfg.HTTP.MaxRetries, "number of retries when downloading a peer list")
	flagSet.DurationVar(&cfg.HTTP.Timeout, "http-timeout",
		cfg.HTTP.Timeout, "timeout of a single peer list request")

	/** ======================== Logging Flags ========================== **/
	flagSet.StringVar(&cfg.Logging.Encoder, "log-encoder",
		cfg.Logging.Encoder, "log as json or console")
	flagSet.StringVar(&cfg.Logging.AppLoggerLevel, "log-level",
		cfg.Logging.AppLoggerLevel, "level of the app logger")
}
