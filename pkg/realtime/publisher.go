package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"

	"github.com/Rath300/research-collab/pkg/metrics"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// DefaultRoutes lists, per table, the columns subscribers filter on.
var DefaultRoutes = map[string][]string{
	"messages":           {"match_id", "receiver_id"},
	"user_notifications": {"user_id"},
	"matches":            {"user_id_1", "user_id_2"},
	"research_posts":     {"visibility"},
}

// Publisher fans a row out to every channel a subscriber could be listening on.
type Publisher struct {
	client redis.UniversalClient
	logger ectologger.Logger
	prefix string
	routes map[string][]string
	now    func() time.Time
}

func NewPublisher(client redis.UniversalClient, logger ectologger.Logger, prefix string, routes map[string][]string) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if routes == nil {
		routes = DefaultRoutes
	}
	return &Publisher{
		client: client,
		logger: logger,
		prefix: prefix,
		routes: routes,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// PublishInsert announces a new row of table. row must marshal to a JSON
// object carrying tenant_id and the routed columns. It returns the number of
// subscribers reached.
func (p *Publisher) PublishInsert(ctx context.Context, table string, row any) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "realtime.Publisher.PublishInsert")
	defer span.End()

	raw, err := json.Marshal(row)
	if err != nil {
		return 0, fmt.Errorf("encoding %s row: %w", table, err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return 0, fmt.Errorf("%s row is not an object: %w", table, err)
	}

	tenantID, _ := fields["tenant_id"].(string)
	if tenantID == "" {
		return 0, fmt.Errorf("%s row has no tenant_id", table)
	}

	payload, err := json.Marshal(Event{
		Type:            EventInsert,
		Table:           table,
		New:             raw,
		CommitTimestamp: p.now(),
	})
	if err != nil {
		return 0, err
	}

	var reached int64
	for _, column := range p.routes[table] {
		value, ok := fields[column]
		if !ok || value == nil {
			continue
		}

		channel := Channel(p.prefix, tenantID, Filter{Table: table, Column: column, Value: fmt.Sprint(value)})
		n, err := p.client.Publish(ctx, channel, payload).Result()
		if err != nil {
			tracing.RecordError(ctx, err)
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"channel": channel,
			}).Error("failed to publish realtime event")
			return reached, err
		}
		reached += n
		metrics.RecordRealtimeEvent("published", table)
	}

	return reached, nil
}
