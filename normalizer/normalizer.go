// Package normalizer converts raw peer records returned by sources into
// canonical records.
//
// Records that can't be normalized are dropped from the working set and
// reported to the caller together with the reason. Nothing is dropped
// silently: Report.Dropped always equals the number of excluded records.
package normalizer

import (
	"errors"
	"maps"

	"go.uber.org/zap"

	"github.com/spacemeshos/noderecon/common/types"
	"github.com/spacemeshos/noderecon/log"
)

// Opt for configuring Normalizer.
type Opt func(*Normalizer)

// WithLogger sets logger for Normalizer.
func WithLogger(logger *zap.Logger) Opt {
	return func(n *Normalizer) {
		n.logger = logger
	}
}

// WithIDField overwrites the attribute used as the unique key.
func WithIDField(field string) Opt {
	return func(n *Normalizer) {
		n.idField = field
	}
}

// WithDedup enables collapsing of records with the same identifier within one
// collection. The first occurrence is kept.
func WithDedup(enable bool) Opt {
	return func(n *Normalizer) {
		n.dedup = enable
	}
}

// Normalizer validates and coerces raw records.
type Normalizer struct {
	logger  *zap.Logger
	idField string
	dedup   bool
}

// New creates a Normalizer.
func New(opts ...Opt) *Normalizer {
	n := &Normalizer{
		logger:  zap.NewNop(),
		idField: types.FieldID,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts a single raw record.
//
// It fails with *MissingIdentifierError if the identifier is absent and with
// *MalformedTimestampError if last_time is present but can't be parsed.
func (n *Normalizer) Normalize(raw types.RawRecord) (types.PeerRecord, error) {
	id, ok := identifier(raw[n.idField])
	if !ok {
		return types.PeerRecord{}, &MissingIdentifierError{Field: n.idField}
	}
	rec := types.PeerRecord{
		ID:        id,
		IP:        text(raw[types.FieldIP]),
		IsInbound: parseBool(raw[types.FieldIsInbound]),
		IsDyndial: parseBool(raw[types.FieldIsDyndial]),
	}
	ts, ok, err := parseTime(raw[types.FieldLastTime])
	if err != nil {
		return types.PeerRecord{}, &MalformedTimestampError{ID: id, Value: raw[types.FieldLastTime], Err: err}
	}
	rec.LastTime, rec.HasTime = ts, ok

	attrs := maps.Clone(map[string]any(raw))
	for _, key := range []string{
		n.idField,
		types.FieldIP,
		types.FieldLastTime,
		types.FieldIsInbound,
		types.FieldIsDyndial,
	} {
		delete(attrs, key)
	}
	if len(attrs) > 0 {
		rec.Attrs = attrs
	}
	return rec, nil
}

// Report describes the outcome of normalizing one source.
type Report struct {
	Source        string
	Input         int
	Kept          int
	Dropped       int
	MissingID     int
	MalformedTime int
	// Duplicates is the number of records collapsed by the dedup pass.
	// They are not counted as dropped.
	Duplicates int
	Errors     []error
}

// Err joins all per-record errors.
func (r *Report) Err() error {
	return errors.Join(r.Errors...)
}

// NormalizeAll normalizes every record of a source. Failing records are
// excluded from the returned collection and accounted for in the report.
func (n *Normalizer) NormalizeAll(label string, raws []types.RawRecord) (types.Collection, Report) {
	report := Report{Source: label, Input: len(raws)}
	records := make([]types.PeerRecord, 0, len(raws))
	var seen map[string]struct{}
	if n.dedup {
		seen = make(map[string]struct{}, len(raws))
	}
	for i, raw := range raws {
		rec, err := n.Normalize(raw)
		if err != nil {
			var (
				missing   *MissingIdentifierError
				malformed *MalformedTimestampError
			)
			switch {
			case errors.As(err, &missing):
				report.MissingID++
				droppedRecords.WithLabelValues(label, reasonMissingID).Inc()
			case errors.As(err, &malformed):
				report.MalformedTime++
				droppedRecords.WithLabelValues(label, reasonMalformedTime).Inc()
			}
			report.Dropped++
			report.Errors = append(report.Errors, err)
			n.logger.Debug("dropped record",
				log.Source(label),
				zap.Int("position", i),
				zap.Error(err),
			)
			continue
		}
		if seen != nil {
			if _, exist := seen[rec.ID]; exist {
				report.Duplicates++
				duplicateRecords.WithLabelValues(label).Inc()
				n.logger.Debug("duplicate record", log.Source(label), log.PeerID(rec.ID))
				continue
			}
			seen[rec.ID] = struct{}{}
		}
		records = append(records, rec)
	}
	report.Kept = len(records)
	normalizedRecords.WithLabelValues(label).Add(float64(report.Kept))
	if report.Dropped > 0 {
		n.logger.Warn("records dropped during normalization",
			log.Source(label),
			log.Records(report.Input),
			log.Dropped(report.Dropped),
			zap.Int("missing_id", report.MissingID),
			zap.Int("malformed_time", report.MalformedTime),
		)
	}
	return types.Collection{Label: label, Records: records}, report
}
