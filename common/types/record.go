package types

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Attribute names recognized on raw peer records.
const (
	FieldID        = "id"
	FieldAddress   = "address"
	FieldIP        = "ip"
	FieldLastTime  = "last_time"
	FieldIsInbound = "is_inbound"
	FieldIsDyndial = "is_dyndial"
)

// RawRecord is a peer observation as returned by a source, before any
// validation. Any key may be missing.
type RawRecord map[string]any

// PeerRecord is a normalized peer observation with a guaranteed identifier.
// Values are not modified after normalization.
type PeerRecord struct {
	ID        string
	IP        string
	LastTime  time.Time
	HasTime   bool
	IsInbound bool
	IsDyndial bool
	// Attrs holds the remaining attributes of the raw record unchanged.
	Attrs map[string]any
}

// Observed returns the last observation time and whether it is known.
func (r *PeerRecord) Observed() (time.Time, bool) {
	return r.LastTime, r.HasTime
}

// MarshalLogObject implements logging interface.
func (r *PeerRecord) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("id", r.ID)
	if r.IP != "" {
		encoder.AddString("ip", r.IP)
	}
	if r.HasTime {
		encoder.AddTime("last_time", r.LastTime)
	}
	encoder.AddBool("inbound", r.IsInbound)
	encoder.AddBool("dyndial", r.IsDyndial)
	return nil
}
