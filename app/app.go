// Package app wires sources, the reconciliation engine and outputs into the
// noderecon pipeline.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/spacemeshos/noderecon/config"
	"github.com/spacemeshos/noderecon/log"
	"github.com/spacemeshos/noderecon/peerlist"
	"github.com/spacemeshos/noderecon/source"
	"github.com/spacemeshos/noderecon/source/neo4j"
	"github.com/spacemeshos/noderecon/source/snapshot"
	"github.com/spacemeshos/noderecon/sql"
)

const (
	AppLogger        = "app"
	SourceLogger     = "source"
	NormalizerLogger = "normalizer"
	PeerListLogger   = "peerlist"
	StoreLogger      = "store"
)

const lockFileName = "noderecon.lock"

// Opt configures App.
type Opt func(*App)

// WithConfig overwrites the default configuration.
func WithConfig(cfg *config.Config) Opt {
	return func(app *App) {
		app.Config = cfg
	}
}

// WithLog sets the root logger. Component loggers are derived from it.
func WithLog(logger *zap.Logger) Opt {
	return func(app *App) {
		app.log = logger
	}
}

// WithClock sets the clock used to timestamp runs and imports.
func WithClock(clock clockwork.Clock) Opt {
	return func(app *App) {
		app.clock = clock
	}
}

// WithFs sets the file system used to read peer lists and dumps.
func WithFs(fs afero.Fs) Opt {
	return func(app *App) {
		app.fs = fs
	}
}

// WithOutput sets where reports are written.
func WithOutput(w io.Writer) Opt {
	return func(app *App) {
		app.out = w
	}
}

// WithSources replaces sources built from the configuration.
func WithSources(sources ...source.Source) Opt {
	return func(app *App) {
		app.sources = sources
	}
}

// App is the noderecon application.
type App struct {
	Config *config.Config

	log      *zap.Logger
	loggers  map[string]*zap.AtomicLevel
	clock    clockwork.Clock
	fs       afero.Fs
	out      io.Writer
	fileLock *flock.Flock
	db       *sql.Database
	sources  []source.Source
}

// New creates an App.
func New(opts ...Opt) *App {
	defaultConfig := config.DefaultConfig()
	app := &App{
		Config:  &defaultConfig,
		log:     log.NewNop(),
		loggers: make(map[string]*zap.AtomicLevel),
		clock:   clockwork.NewRealClock(),
		fs:      afero.NewOsFs(),
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

func (app *App) addLogger(name, level string) *zap.Logger {
	if lvl, exist := app.loggers[name]; exist {
		return log.Named(app.log, name, *lvl)
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		app.log.Warn("invalid log level, using info",
			zap.String("module", name),
			zap.String("level", level),
			zap.Error(err),
		)
		lvl = zap.NewAtomicLevel()
	}
	app.loggers[name] = &lvl
	return log.Named(app.log, name, lvl)
}

// Lock locks the data directory for exclusive use. It returns an error if
// another instance holds the lock.
func (app *App) Lock() error {
	if err := os.MkdirAll(app.Config.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating data dir %s: %w", app.Config.DataDir, err)
	}
	fl := flock.New(filepath.Join(app.Config.DataDir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("flock %s: %w", fl.Path(), err)
	} else if !locked {
		return fmt.Errorf("only one noderecon instance should use the data dir (locking file %s)", fl.Path())
	}
	app.fileLock = fl
	return nil
}

// Unlock unlocks the data directory. It is a no-op if the app is not locked.
func (app *App) Unlock() {
	if app.fileLock == nil {
		return
	}
	if err := app.fileLock.Unlock(); err != nil {
		app.log.Error("failed to unlock file",
			zap.String("path", app.fileLock.Path()),
			zap.Error(err),
		)
	}
}

// Initialize validates configuration and opens the snapshot database.
func (app *App) Initialize() error {
	if err := app.Config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	path := app.Config.SnapshotPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating dir for %s: %w", path, err)
	}
	db, err := sql.Open("file:"+path,
		sql.WithLogger(app.addLogger(StoreLogger, app.Config.Logging.StoreLoggerLevel)),
		sql.WithConnections(app.Config.DatabaseConnections),
		sql.WithLatencyMetering(app.Config.DatabaseLatencyMetering),
	)
	if err != nil {
		return fmt.Errorf("open snapshot %s: %w", path, err)
	}
	app.db = db
	return nil
}

// Close releases the snapshot database.
func (app *App) Close() error {
	if app.db == nil {
		return nil
	}
	return app.db.Close()
}

func (app *App) buildSources() []source.Source {
	if app.sources != nil {
		return app.sources
	}
	logger := app.addLogger(SourceLogger, app.Config.Logging.SourceLoggerLevel)
	sources := make([]source.Source, 0, len(app.Config.Sources))
	for _, src := range app.Config.Sources {
		switch src.Kind {
		case config.SourceNeo4j:
			sources = append(sources, neo4j.New(src.Label, neo4j.Config{
				URI:      src.URI,
				User:     src.User,
				Password: src.Password,
				Database: src.Database,
				Query:    src.Query,
			}, neo4j.WithLogger(logger)))
		case config.SourceSnapshot:
			sources = append(sources, snapshot.New(app.db, src.Label, snapshot.WithStoredAs(src.Database)))
		}
	}
	return sources
}

// loadPeerList reads a configured peer list from a file or from a remote url.
func (app *App) loadPeerList(ctx context.Context, fetcher *peerlist.Fetcher, pl config.PeerListConfig) (*peerlist.List, error) {
	format, err := peerlist.ParseFormat(pl.Format)
	if err != nil {
		return nil, err
	}
	var list *peerlist.List
	if pl.URL != "" {
		list, err = fetcher.Fetch(ctx, pl.URL, format, pl.Column)
	} else {
		list, err = peerlist.Load(app.fs, pl.Path, format, pl.Column)
	}
	if err != nil {
		return nil, fmt.Errorf("peer list %s: %w", pl.Label, err)
	}
	return list, nil
}

func (app *App) newFetcher() *peerlist.Fetcher {
	return peerlist.NewFetcher(
		peerlist.WithLogger(app.addLogger(PeerListLogger, app.Config.Logging.PeerListLoggerLevel)),
		peerlist.WithRetries(app.Config.HTTP.MaxRetries, app.Config.HTTP.RetryWaitMin, app.Config.HTTP.RetryWaitMax),
		peerlist.WithTimeout(app.Config.HTTP.Timeout),
	)
}
