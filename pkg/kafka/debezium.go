package kafka

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// DebeziumEnvelope is the standard Debezium CDC message format
type DebeziumEnvelope struct {
	Schema  json.RawMessage `json:"schema,omitempty"`
	Payload DebeziumPayload `json:"payload"`
}

// DebeziumPayload contains the before/after state of a row
type DebeziumPayload struct {
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
	Source DebeziumSource  `json:"source"`
	Op     string          `json:"op"` // c=create, u=update, d=delete, r=read (snapshot)
	TsMs   int64           `json:"ts_ms"`
}

// DebeziumSource contains metadata about the source of the change
type DebeziumSource struct {
	Connector string `json:"connector"`
	Name      string `json:"name"`
	Db        string `json:"db"`
	Schema    string `json:"schema"`
	Table     string `json:"table"`
	Snapshot  string `json:"snapshot,omitempty"`
}

var ErrNotDebezium = errors.New("message is not a debezium change event")

// ParseDebeziumMessage accepts both the schema-wrapped envelope and the bare
// payload produced when the converter has schemas disabled. Tombstones
// (empty values) yield ErrNotDebezium.
func ParseDebeziumMessage(data []byte) (*DebeziumPayload, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil, ErrNotDebezium
	}

	var envelope DebeziumEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	if envelope.Payload.Op != "" {
		return &envelope.Payload, nil
	}

	var payload DebeziumPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if payload.Op == "" {
		return nil, ErrNotDebezium
	}
	return &payload, nil
}

// IsInsert reports a row insert. Snapshot reads are not inserts.
func (p *DebeziumPayload) IsInsert() bool {
	return p.Op == "c"
}

func (p *DebeziumPayload) IsUpdate() bool {
	return p.Op == "u"
}

func (p *DebeziumPayload) IsDelete() bool {
	return p.Op == "d"
}

// Row returns the after image, or nil for deletes.
func (p *DebeziumPayload) Row() json.RawMessage {
	if len(p.After) == 0 || string(p.After) == "null" {
		return nil
	}
	return p.After
}

// Timestamp returns the event timestamp
func (p *DebeziumPayload) Timestamp() time.Time {
	return time.UnixMilli(p.TsMs).UTC()
}
