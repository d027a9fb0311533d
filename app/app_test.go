package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	startErr error
	started  chan struct{}
	stopped  bool
	mu       sync.Mutex
}

func (s *fakeServer) Start(ctx context.Context) error {
	close(s.started)
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return nil
}

func (s *fakeServer) Stop(context.Context) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	srv := &fakeServer{started: make(chan struct{})}
	a := New("forecastd", "test", discardLogger(),
		WithServer(srv),
		WithHook(Hook{Name: "tracer", OnStart: record("start tracer"), OnStop: record("stop tracer")}),
		WithCleanup("cache", record("stop cache")),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	<-srv.started
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}

	assert.True(t, srv.stopped)
	assert.Equal(t, []string{"start tracer", "stop cache", "stop tracer"}, order)
}

func TestRunReturnsServerError(t *testing.T) {
	boom := errors.New("listen failed")
	failing := &fakeServer{started: make(chan struct{}), startErr: boom}
	healthy := &fakeServer{started: make(chan struct{})}

	cleaned := false
	a := New("forecastd", "test", discardLogger(),
		WithServer(failing, healthy),
		WithCleanup("metrics", func(context.Context) error { cleaned = true; return nil }),
	)

	err := a.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.True(t, cleaned)
	assert.True(t, healthy.stopped)
}

func TestLifecycleStopsOnlyStartedHooks(t *testing.T) {
	var stopped []string
	l := NewLifecycle(discardLogger())
	l.Append(Hook{Name: "a", OnStop: func(context.Context) error { stopped = append(stopped, "a"); return nil }})
	l.Append(Hook{
		Name:    "b",
		OnStart: func(context.Context) error { return errors.New("no") },
		OnStop:  func(context.Context) error { stopped = append(stopped, "b"); return nil },
	})
	l.Append(Hook{Name: "c", OnStop: func(context.Context) error { stopped = append(stopped, "c"); return nil }})

	require.Error(t, l.Start(context.Background()))
	require.NoError(t, l.Stop(context.Background()))
	assert.Equal(t, []string{"a"}, stopped)
}
