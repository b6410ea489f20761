package log

import (
	"time"

	"go.uber.org/zap"
)

// Source returns a String field (key - "source").
func Source(label string) zap.Field {
	return zap.String("source", label)
}

// PeerID returns a String field (key - "peer_id").
func PeerID(id string) zap.Field {
	return zap.String("peer_id", id)
}

// Records returns an Int field (key - "records").
func Records(n int) zap.Field {
	return zap.Int("records", n)
}

// Dropped returns an Int field (key - "dropped").
func Dropped(n int) zap.Field {
	return zap.Int("dropped", n)
}

// Elapsed returns a Duration field (key - "elapsed").
func Elapsed(d time.Duration) zap.Field {
	return zap.Duration("elapsed", d)
}
