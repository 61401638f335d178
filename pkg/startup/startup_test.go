package startup_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rath300/research-collab/pkg/startup"
)

func newStartup(attempts int) *startup.Startup {
	return startup.New(ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {}), attempts).
		WithBackoffUnit(time.Millisecond)
}

func TestStartRespectsDependencies(t *testing.T) {
	var started, stopped []string
	dep := func(name string, requires ...string) startup.Func {
		return startup.Func{
			Name:     name,
			Requires: requires,
			StartFn:  func(context.Context) error { started = append(started, name); return nil },
			StopFn:   func(context.Context) error { stopped = append(stopped, name); return nil },
		}
	}

	s := newStartup(1)
	s.Add(dep("server", "database", "redis"))
	s.Add(dep("redis"))
	s.Add(dep("database", "migrations"))
	s.Add(dep("migrations"))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"migrations", "database", "redis", "server"}, started)

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, "server", stopped[0])
	assert.Len(t, stopped, 4)
	assert.Equal(t, startup.StatusStopped, s.Status("database"))
}

func TestStartRetriesFailedDependency(t *testing.T) {
	calls := 0
	s := newStartup(3)
	s.Add(startup.Func{Name: "database", StartFn: func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 3, calls)
	assert.Equal(t, startup.StatusStarted, s.Status("database"))
}

func TestStartGivesUp(t *testing.T) {
	boom := errors.New("unreachable")
	s := newStartup(2)
	s.Add(startup.Func{Name: "kafka", StartFn: func(context.Context) error { return boom }})

	err := s.Start(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, startup.StatusFailed, s.Status("kafka"))
}

func TestStartRejectsUnknownDependency(t *testing.T) {
	s := newStartup(1)
	s.Add(startup.Func{Name: "server", Requires: []string{"database"}})
	assert.ErrorContains(t, s.Start(context.Background()), "unknown dependency")
}
