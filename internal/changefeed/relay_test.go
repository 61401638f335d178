package changefeed_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rath300/research-collab/internal/changefeed"
	"github.com/Rath300/research-collab/pkg/kafka"
)

type published struct {
	table string
	row   json.RawMessage
}

type fakePublisher struct {
	calls []published
	err   error
}

func (p *fakePublisher) PublishInsert(_ context.Context, table string, row any) (int64, error) {
	if p.err != nil {
		return 0, p.err
	}
	raw, err := json.Marshal(row)
	if err != nil {
		return 0, err
	}
	p.calls = append(p.calls, published{table: table, row: raw})
	return 1, nil
}

func message(value string) *kafka.IncomingMessage {
	return &kafka.IncomingMessage{Topic: "cdc.public.messages", Value: []byte(value)}
}

func newRelay(p *fakePublisher, tables ...string) *changefeed.Relay {
	return changefeed.NewRelay(p, tables, ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {}))
}

func TestRelayForwardsInserts(t *testing.T) {
	p := &fakePublisher{}
	relay := newRelay(p, "messages", "user_notifications")

	err := relay.Handle(context.Background(), message(`{
		"schema": {},
		"payload": {
			"before": null,
			"after": {"id": "m1", "tenant_id": "t1", "match_id": "x"},
			"source": {"table": "messages"},
			"op": "c",
			"ts_ms": 1700000000000
		}
	}`))
	require.NoError(t, err)

	require.Len(t, p.calls, 1)
	assert.Equal(t, "messages", p.calls[0].table)
	assert.JSONEq(t, `{"id": "m1", "tenant_id": "t1", "match_id": "x"}`, string(p.calls[0].row))
}

func TestRelaySkipsWhatItCannotRelay(t *testing.T) {
	cases := map[string]string{
		"tombstone":      ``,
		"update":         `{"after": {"id": "m1"}, "source": {"table": "messages"}, "op": "u"}`,
		"delete":         `{"before": {"id": "m1"}, "after": null, "source": {"table": "messages"}, "op": "d"}`,
		"snapshot":       `{"after": {"id": "m1"}, "source": {"table": "messages"}, "op": "r"}`,
		"other table":    `{"after": {"id": "p1"}, "source": {"table": "profiles"}, "op": "c"}`,
		"no after image": `{"after": null, "source": {"table": "messages"}, "op": "c"}`,
		"not json":       `{{{`,
		"not debezium":   `{"hello": "world"}`,
	}

	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			p := &fakePublisher{}
			err := newRelay(p, "messages").Handle(context.Background(), message(value))
			assert.NoError(t, err)
			assert.Empty(t, p.calls)
		})
	}
}

func TestRelayWithoutTableListForwardsEverything(t *testing.T) {
	p := &fakePublisher{}
	err := newRelay(p).Handle(context.Background(), message(`{"after": {"id": "p1"}, "source": {"table": "profiles"}, "op": "c"}`))
	require.NoError(t, err)
	require.Len(t, p.calls, 1)
	assert.Equal(t, "profiles", p.calls[0].table)
}

func TestRelayReturnsPublishFailures(t *testing.T) {
	boom := errors.New("redis down")
	p := &fakePublisher{err: boom}
	err := newRelay(p).Handle(context.Background(), message(`{"after": {"id": "m1"}, "source": {"table": "messages"}, "op": "c"}`))
	assert.ErrorIs(t, err, boom)
}
