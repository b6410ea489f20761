// Package snapshot reads raw records previously imported into the local
// snapshot database.
package snapshot

import (
	"context"

	"github.com/spacemeshos/noderecon/common/types"
	"github.com/spacemeshos/noderecon/sql"
	"github.com/spacemeshos/noderecon/sql/peers"
)

// Opt for configuring snapshot Source.
type Opt func(*Source)

// WithStoredAs reads records imported under a different label.
func WithStoredAs(stored string) Opt {
	return func(s *Source) {
		if stored != "" {
			s.stored = stored
		}
	}
}

// Source replays an imported source.
type Source struct {
	db     sql.Executor
	label  string
	stored string
}

// New creates a snapshot Source.
func New(db sql.Executor, label string, opts ...Opt) *Source {
	s := &Source{db: db, label: label, stored: label}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Label() string {
	return s.label
}

func (s *Source) Fetch(ctx context.Context) ([]types.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return peers.BySource(s.db, s.stored)
}
