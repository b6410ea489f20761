// Package neo4j reads crawled peers from a neo4j graph database.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/spacemeshos/noderecon/common/types"
	"github.com/spacemeshos/noderecon/log"
)

// DefaultQuery selects peers that completed the eth handshake.
const DefaultQuery = "MATCH (n) WHERE n.is_eth_handshake_complete = true RETURN n"

// resultKey is the name of the returned node in the query.
const resultKey = "n"

var errUnexpectedValue = errors.New("unexpected result value")

// Config for connecting to the database.
type Config struct {
	URI      string
	User     string
	Password string
	// Database is the name of the database, server default if empty.
	Database string
	// Query must return peers as nodes or maps under the name "n".
	Query string
}

// Opt for configuring Source.
type Opt func(*Source)

// WithLogger sets logger for Source.
func WithLogger(logger *zap.Logger) Opt {
	return func(s *Source) {
		s.logger = logger
	}
}

// Source fetches node properties of every matching node.
type Source struct {
	label  string
	cfg    Config
	logger *zap.Logger
}

// New creates a neo4j Source.
func New(label string, cfg Config, opts ...Opt) *Source {
	if cfg.Query == "" {
		cfg.Query = DefaultQuery
	}
	s := &Source{label: label, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Label() string {
	return s.label
}

// Fetch opens a new driver, runs the query in a read transaction and releases
// both session and driver before returning.
func (s *Source) Fetch(ctx context.Context) (rst []types.RawRecord, err error) {
	driver, err := neo4j.NewDriverWithContext(s.cfg.URI, neo4j.BasicAuth(s.cfg.User, s.cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create driver %s: %w", s.cfg.URI, err)
	}
	defer func() {
		err = errors.Join(err, driver.Close(context.WithoutCancel(ctx)))
	}()
	session := driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.cfg.Database,
	})
	defer func() {
		err = errors.Join(err, session.Close(context.WithoutCancel(ctx)))
	}()

	start := time.Now()
	records, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) ([]types.RawRecord, error) {
		result, err := tx.Run(ctx, s.cfg.Query, nil)
		if err != nil {
			return nil, err
		}
		var records []types.RawRecord
		for result.Next(ctx) {
			value, ok := result.Record().Get(resultKey)
			if !ok {
				return nil, fmt.Errorf("%w: missing %q column", errUnexpectedValue, resultKey)
			}
			record, err := toRecord(value)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}
		return records, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.label, err)
	}
	s.logger.Debug("query completed",
		log.Source(s.label),
		zap.String("uri", s.cfg.URI),
		log.Records(len(records)),
		log.Elapsed(time.Since(start)),
	)
	return records, nil
}

func toRecord(value any) (types.RawRecord, error) {
	switch v := value.(type) {
	case neo4j.Node:
		return convertProps(v.Props), nil
	case *neo4j.Node:
		return convertProps(v.Props), nil
	case map[string]any:
		return convertProps(v), nil
	}
	return nil, fmt.Errorf("%w: %T", errUnexpectedValue, value)
}

// convertProps copies properties replacing driver specific values with plain
// Go values.
func convertProps(props map[string]any) types.RawRecord {
	record := make(types.RawRecord, len(props))
	for key, value := range props {
		record[key] = convertValue(value)
	}
	return record
}

func convertValue(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v
	case neo4j.LocalDateTime:
		// naive, interpreted as UTC by the normalizer
		t := v.Time()
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	case neo4j.Date:
		return v.Time()
	case neo4j.Time:
		return v.Time()
	case neo4j.LocalTime:
		return v.Time()
	case neo4j.Duration:
		return v.String()
	case []any:
		rst := make([]any, len(v))
		for i := range v {
			rst[i] = convertValue(v[i])
		}
		return rst
	case map[string]any:
		return map[string]any(convertProps(v))
	case fmt.Stringer:
		return v.String()
	}
	return value
}
