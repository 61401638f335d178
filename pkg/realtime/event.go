// Package realtime pushes row-insert events to subscribers over Redis pub/sub.
// Each subscription listens to one table/column/value filter within a tenant.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event is one row change as it travels over a channel.
type Event struct {
	Type            EventType       `json:"type"`
	Table           string          `json:"table"`
	New             json.RawMessage `json:"new"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

// Decode unmarshals the new row into T.
func Decode[T any](e Event) (T, error) {
	var v T
	if err := json.Unmarshal(e.New, &v); err != nil {
		return v, fmt.Errorf("decoding %s row: %w", e.Table, err)
	}
	return v, nil
}

// Filter selects rows of Table whose Column equals Value.
type Filter struct {
	Table  string
	Column string
	Value  string
}

func (f Filter) String() string {
	return fmt.Sprintf("%s:%s=%s", f.Table, f.Column, f.Value)
}

// Channel is the pub/sub channel carrying f for tenantID.
func Channel(prefix, tenantID string, f Filter) string {
	return fmt.Sprintf("%s:%s:%s", prefix, tenantID, f)
}

type Status string

const (
	StatusSubscribed   Status = "SUBSCRIBED"
	StatusChannelError Status = "CHANNEL_ERROR"
	StatusTimedOut     Status = "TIMED_OUT"
	StatusClosed       Status = "CLOSED"
)

// StatusFunc receives subscription state changes. err is set for
// StatusChannelError and StatusTimedOut.
type StatusFunc func(status Status, err error)
