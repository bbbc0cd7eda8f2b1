package http

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whoiskiwi/PatentSearch/internal/config"
	"github.com/whoiskiwi/PatentSearch/internal/interfaces/http/handlers"
)

func TestServer_ServeAndStop(t *testing.T) {
	router := NewRouter(RouterConfig{HealthHandler: handlers.NewHealthHandler("test")})
	srv := NewServer(config.ServerConfig{ShutdownTimeout: time.Second}, router, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop(context.Background()))
	assert.NoError(t, <-done)
}

func TestNewServer_Config(t *testing.T) {
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 8123, ReadTimeout: 2 * time.Second, WriteTimeout: 3 * time.Second}
	h := http.NewServeMux()
	srv := NewServer(cfg, h, nil)

	assert.Equal(t, "127.0.0.1:8123", srv.srv.Addr)
	assert.Equal(t, 2*time.Second, srv.srv.ReadTimeout)
	assert.Equal(t, 3*time.Second, srv.srv.WriteTimeout)
	assert.Equal(t, h, srv.Handler())
}

func TestServer_StartListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	srv := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: port}, http.NewServeMux(), nil)
	assert.Error(t, srv.Start())
}
