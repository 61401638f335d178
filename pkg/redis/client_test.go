package redis_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rath300/research-collab/pkg/redis"
)

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
	client, err := redis.NewClient(context.Background(), redis.Config{Host: mr.Host(), Port: port}, logger)
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}

func TestNewClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host := mr.Host()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	mr.Close()

	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
	_, err = redis.NewClient(context.Background(), redis.Config{Host: host, Port: port}, logger)
	assert.ErrorContains(t, err, "failed to connect to Redis")
}
