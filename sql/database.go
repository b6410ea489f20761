package sql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	sqlite "github.com/go-llsqlite/crawshaw"
	"github.com/go-llsqlite/crawshaw/sqlitex"
	"go.uber.org/zap"
)

var (
	// ErrNoConnection is returned when a pooled connection can't be acquired,
	// either because the context is done or the database is closed.
	ErrNoConnection = errors.New("database: no free connection")
	// ErrNotFound is returned if requested record is not found.
	ErrNotFound = errors.New("database: not found")
	// ErrObjectExists is returned if database constraints didn't allow to insert an object.
	ErrObjectExists = errors.New("database: object exists")
	// ErrTooNew is returned if database version is newer than expected.
	ErrTooNew = errors.New("database version is too new")

	errClosed = errors.New("database closed")
)

// DefaultConnections is the size of the connection pool of a file database.
const DefaultConnections = 16

// Executor runs a single statement. Both *Database and *Tx implement it.
type Executor interface {
	Exec(string, Encoder, Decoder) (int, error)
}

// Statement is an sqlite statement.
type Statement = sqlite.Stmt

// Encoder binds parameters, positional (?1) or named (@source).
// See https://www.sqlite.org/c3ref/bind_blob.html.
type Encoder func(*Statement)

// Decoder is called for every row. Returning false stops the iteration.
type Decoder func(*Statement) bool

type options struct {
	migrate     bool
	fresh       bool
	connections int
	metered     bool
	logger      *zap.Logger
}

// Opt for configuring database.
type Opt func(*options)

// WithConnections sets the size of the connection pool.
func WithConnections(n int) Opt {
	return func(o *options) {
		o.connections = n
	}
}

// WithLogger specifies logger for the database.
func WithLogger(logger *zap.Logger) Opt {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMigrationsDisabled opens the database without applying the schema.
func WithMigrationsDisabled() Opt {
	return func(o *options) {
		o.migrate = false
	}
}

// WithLatencyMetering records the duration of every statement.
func WithLatencyMetering(enable bool) Opt {
	return func(o *options) {
		o.metered = enable
	}
}

func inMemory() Opt {
	return func(o *options) {
		o.fresh = true
		o.connections = 1
	}
}

// OpenInMemory creates an in-memory database with a single connection.
func OpenInMemory(opts ...Opt) (*Database, error) {
	return Open("file::memory:?mode=memory", append(opts, inMemory())...)
}

// InMemory is OpenInMemory for tests. It panics on error.
func InMemory(opts ...Opt) *Database {
	db, err := OpenInMemory(opts...)
	if err != nil {
		panic(err)
	}
	return db
}

// Open opens the database at uri, creating the file if it doesn't exist, and
// brings its schema to the latest version.
//
// File databases use WAL journal, see https://sqlite.org/wal.html.
func Open(uri string, opts ...Opt) (*Database, error) {
	o := options{
		migrate:     true,
		connections: DefaultConnections,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.connections < 1 {
		return nil, fmt.Errorf("open db %s: pool needs at least one connection, got %d", uri, o.connections)
	}
	pool, err := openPool(uri, o)
	if err != nil {
		return nil, err
	}
	db := &Database{pool: pool, metered: o.metered}
	if o.migrate {
		if err := migrate(o.logger.With(zap.String("uri", uri)), db); err != nil {
			return nil, errors.Join(err, db.Close())
		}
	}
	o.logger.Debug("database opened",
		zap.String("uri", uri),
		zap.Int("connections", o.connections),
		zap.Bool("latency", o.metered),
	)
	return db, nil
}

func openPool(uri string, o options) (*sqlitex.Pool, error) {
	if o.fresh {
		pool, err := sqlitex.Open(uri, 0, o.connections)
		if err != nil {
			return nil, fmt.Errorf("open db %s: %w", uri, err)
		}
		return pool, nil
	}
	flags := sqlite.SQLITE_OPEN_READWRITE |
		sqlite.SQLITE_OPEN_WAL |
		sqlite.SQLITE_OPEN_URI |
		sqlite.SQLITE_OPEN_NOMUTEX
	pool, err := sqlitex.Open(uri, flags, o.connections)
	if err == nil {
		return pool, nil
	}
	if sqlite.ErrCode(err) != sqlite.SQLITE_CANTOPEN {
		return nil, fmt.Errorf("open db %s: %w", uri, err)
	}
	pool, err = sqlitex.Open(uri, flags|sqlite.SQLITE_OPEN_CREATE, o.connections)
	if err != nil {
		return nil, fmt.Errorf("create db %s: %w", uri, err)
	}
	return pool, nil
}

// Database is a pool of sqlite connections.
type Database struct {
	pool    *sqlitex.Pool
	closed  atomic.Bool
	metered bool
}

func (db *Database) acquire(ctx context.Context) (*sqlite.Conn, error) {
	if db.closed.Load() {
		return nil, fmt.Errorf("%w: %w", ErrNoConnection, errClosed)
	}
	// the pool picks randomly between a free connection and a done context
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoConnection, err)
	}
	start := time.Now()
	conn := db.pool.Get(ctx)
	if conn == nil {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoConnection, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrNoConnection, errClosed)
	}
	connWaitLatency.Observe(time.Since(start).Seconds())
	return conn, nil
}

// WithTx runs exec in an immediate transaction. The transaction is committed
// if exec returns nil and rolled back otherwise.
//
// https://www.sqlite.org/lang_transaction.html
func (db *Database) WithTx(ctx context.Context, exec func(*Tx) error) error {
	conn, err := db.acquire(ctx)
	if err != nil {
		return err
	}
	defer db.pool.Put(conn)
	tx := &Tx{conn: conn, metered: db.metered}
	if err := tx.step("BEGIN IMMEDIATE;"); err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := exec(tx); err != nil {
		if rerr := tx.step("ROLLBACK;"); rerr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rerr))
		}
		return err
	}
	if err := tx.step("COMMIT;"); err != nil {
		return errors.Join(fmt.Errorf("commit: %w", err), tx.step("ROLLBACK;"))
	}
	return nil
}

// Exec runs the statement on a pooled connection. It doesn't wait for
// a connection once the database is closed.
func (db *Database) Exec(query string, encoder Encoder, decoder Decoder) (int, error) {
	conn, err := db.acquire(context.Background())
	if err != nil {
		return 0, err
	}
	defer db.pool.Put(conn)
	return execMetered(db.metered, conn, query, encoder, decoder)
}

// Close closes all pooled connections. It is safe to call more than once.
func (db *Database) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := db.pool.Close(); err != nil {
		return fmt.Errorf("close pool: %w", err)
	}
	return nil
}

// Tx is a transaction started by Database.WithTx. It is valid only inside
// the callback.
type Tx struct {
	conn    *sqlite.Conn
	metered bool
}

func (tx *Tx) step(query string) error {
	_, err := tx.conn.Prep(query).Step()
	return err
}

// Exec runs the statement within the transaction.
func (tx *Tx) Exec(query string, encoder Encoder, decoder Decoder) (int, error) {
	return execMetered(tx.metered, tx.conn, query, encoder, decoder)
}

func execMetered(metered bool, conn *sqlite.Conn, query string, encoder Encoder, decoder Decoder) (int, error) {
	if !metered {
		return exec(conn, query, encoder, decoder)
	}
	start := time.Now()
	rows, err := exec(conn, query, encoder, decoder)
	queryDuration.WithLabelValues(statementKind(query)).Observe(time.Since(start).Seconds())
	return rows, err
}

// statementKind is the leading keyword of the query, used as a metric label
// so that bound values and literals don't multiply series.
func statementKind(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "empty"
	}
	return strings.ToLower(strings.TrimSuffix(fields[0], ";"))
}

func exec(conn *sqlite.Conn, query string, encoder Encoder, decoder Decoder) (int, error) {
	stmt, err := conn.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("prepare %s: %w", query, err)
	}
	if encoder != nil {
		encoder(stmt)
	}
	defer stmt.ClearBindings()

	for rows := 0; ; {
		row, err := stmt.Step()
		switch code := sqlite.ErrCode(err); {
		case code == sqlite.SQLITE_CONSTRAINT_PRIMARYKEY, code == sqlite.SQLITE_CONSTRAINT_UNIQUE:
			return 0, ErrObjectExists
		case err != nil:
			return 0, fmt.Errorf("step %d: %w", rows, err)
		case !row:
			return rows, nil
		}
		rows++
		if decoder != nil && !decoder(stmt) {
			if err := stmt.Reset(); err != nil {
				return rows, fmt.Errorf("statement reset: %w", err)
			}
			return rows, nil
		}
	}
}

// IsNull returns true if the specified result column is null.
func IsNull(stmt *Statement, col int) bool {
	return stmt.ColumnType(col) == sqlite.SQLITE_NULL
}
