package rest

import (
	"github.com/goccy/go-json"

	"github.com/adalberto1996/citas-hsc/pkg/listview"
)

// Envelope is the response wrapper the citas API uses across endpoints:
// {success, data, meta?, mensaje?}. Some older endpoints return their
// collection beside success instead of under data (citas, mensajes,
// solicitudes); those fields are kept so the resolver layer sees every
// shape.
type Envelope struct {
	Success bool            `json:"success"`
	Mensaje string          `json:"mensaje,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Meta    *listview.Meta  `json:"meta,omitempty"`

	// Legacy top-level collections.
	Citas       json.RawMessage `json:"citas,omitempty"`
	Mensajes    json.RawMessage `json:"mensajes,omitempty"`
	Solicitudes json.RawMessage `json:"solicitudes,omitempty"`
}

// Records decodes data as a batch of raw records. A missing, null or
// non-array data block yields an empty batch, never an error: absence is
// data at this boundary.
func (e *Envelope) Records() []map[string]any {
	return decodeRecords(e.Data)
}

// ListRecords returns the data batch, falling back to the legacy
// top-level collection fields for endpoints that predate the envelope.
func (e *Envelope) ListRecords() []map[string]any {
	if recs := decodeRecords(e.Data); recs != nil {
		return recs
	}
	for _, raw := range []json.RawMessage{e.Citas, e.Mensajes, e.Solicitudes} {
		if recs := decodeRecords(raw); recs != nil {
			return recs
		}
	}
	return nil
}

// RecordsAt decodes data as an object and returns the named field as a
// batch of raw records ({"data": {"contactos": [...]}}).
func (e *Envelope) RecordsAt(field string) []map[string]any {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(e.Data, &outer); err != nil {
		return nil
	}
	return decodeRecords(outer[field])
}

// Record decodes data as a single raw record, nil when absent.
func (e *Envelope) Record() map[string]any {
	var rec map[string]any
	if err := json.Unmarshal(e.Data, &rec); err != nil {
		return nil
	}
	return rec
}

// RecordAt returns the named sub-record of data ({"data": {"cita": {...}}}),
// nil when absent or null.
func (e *Envelope) RecordAt(field string) map[string]any {
	rec := e.Record()
	if rec == nil {
		return nil
	}
	sub, ok := rec[field].(map[string]any)
	if !ok {
		return nil
	}
	return sub
}

func decodeRecords(raw json.RawMessage) []map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var recs []map[string]any
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil
	}
	return recs
}
