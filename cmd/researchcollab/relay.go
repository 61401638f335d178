package main

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Rath300/research-collab/internal/changefeed"
	apperrors "github.com/Rath300/research-collab/pkg/errors"
	"github.com/Rath300/research-collab/pkg/kafka"
	"github.com/Rath300/research-collab/pkg/realtime"
)

func newRelayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Relay change feed inserts from Kafka to realtime subscribers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			return a.relay(cmd.Context())
		},
	}
}

func (a *app) relay(ctx context.Context) error {
	defer a.startTracing(ctx)()

	if !a.cfg.Kafka.Enabled {
		return apperrors.NewConfigurationError("relay", "KAFKA_ENABLED")
	}

	rdb, err := a.connectRedis(ctx)
	if err != nil {
		return err
	}
	defer rdb.Close()

	publisher := realtime.NewPublisher(rdb.Redis(), a.logger, a.cfg.Realtime.ChannelPrefix, nil)
	relay := changefeed.NewRelay(publisher, tableNames(a.cfg.Kafka.ChangeFeedTopics), a.logger)

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:       a.cfg.Kafka.Brokers,
		Topics:        a.cfg.Kafka.ChangeFeedTopics,
		ConsumerGroup: a.cfg.Kafka.ConsumerGroup,
	}, a.logger, relay.Handle)

	consumer.Start(ctx)
	a.logger.WithField("topics", a.cfg.Kafka.ChangeFeedTopics).Info("Relaying change feed")

	<-ctx.Done()
	return consumer.Stop()
}

// tableNames takes the table from each "server.schema.table" topic.
func tableNames(topics []string) []string {
	tables := make([]string, 0, len(topics))
	for _, topic := range topics {
		tables = append(tables, topic[strings.LastIndex(topic, ".")+1:])
	}
	return tables
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
