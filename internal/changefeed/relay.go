// Package changefeed turns row inserts captured from the database log into
// realtime events, so rows written by any client reach live subscribers.
package changefeed

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Rath300/research-collab/pkg/kafka"
	"github.com/Rath300/research-collab/pkg/metrics"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// InsertPublisher is implemented by realtime.Publisher.
type InsertPublisher interface {
	PublishInsert(ctx context.Context, table string, row any) (int64, error)
}

type Relay struct {
	publisher InsertPublisher
	tables    []string
	logger    ectologger.Logger
}

// NewRelay forwards inserts on tables. An empty list forwards every table.
func NewRelay(publisher InsertPublisher, tables []string, logger ectologger.Logger) *Relay {
	return &Relay{
		publisher: publisher,
		tables:    tables,
		logger:    logger,
	}
}

// Handle is a kafka.MessageHandler. Only publish failures are returned, so
// messages that can never be relayed are still committed.
func (r *Relay) Handle(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "changefeed.Relay.Handle")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	payload, err := kafka.ParseDebeziumMessage(msg.Value)
	if errors.Is(err, kafka.ErrNotDebezium) {
		metrics.RecordChangeFeedEvent("", "skipped")
		return nil
	}
	if err != nil {
		metrics.RecordChangeFeedEvent("", "malformed")
		log.WithError(err).Warn("dropping malformed change event")
		return nil
	}

	table := payload.Source.Table
	if !payload.IsInsert() || !r.relays(table) {
		metrics.RecordChangeFeedEvent(table, "ignored")
		return nil
	}

	row := payload.Row()
	if row == nil {
		metrics.RecordChangeFeedEvent(table, "malformed")
		log.Warnf("insert on %s carried no row", table)
		return nil
	}

	reached, err := r.publisher.PublishInsert(ctx, table, json.RawMessage(row))
	if err != nil {
		tracing.RecordError(ctx, err)
		metrics.RecordChangeFeedEvent(table, "failed")
		return err
	}

	metrics.RecordChangeFeedEvent(table, "published")
	log.WithField("subscribers", reached).Debugf("relayed insert on %s", table)
	return nil
}

func (r *Relay) relays(table string) bool {
	if table == "" {
		return false
	}
	return len(r.tables) == 0 || ectolinq.Contains(r.tables, table)
}
