package server

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestGinServerStopsOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var cfg config.ServerConfig
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.HTTP.ReadHeaderTimeout = time.Second

	s := NewGinServer(NewDefaultGinEngine(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, "127.0.0.1:0", s.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestAddrFromPort(t *testing.T) {
	var cfg config.ServerConfig
	cfg.HTTP.Port = 9090
	s := NewGinServer(NewDefaultGinEngine(), cfg, slog.Default())
	assert.Equal(t, ":9090", s.Addr())
}
