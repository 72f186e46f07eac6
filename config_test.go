/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	require.NoError(t, (&Config{port: 8080}).validate())
	require.Error(t, (&Config{port: 0}).validate())
	require.Error(t, (&Config{port: 70000}).validate())
	require.Error(t, (&Config{port: 8080, tlsCert: "cert.pem"}).validate())
	require.NoError(t, (&Config{port: 8080, tlsCert: "cert.pem", tlsKey: "key.pem"}).validate())
}

func TestValidateClient(t *testing.T) {
	for _, server := range []string{"http://localhost:8080", "https://reveal.example", "ws://host", "wss://host/prefix"} {
		require.NoError(t, (&Config{server: server}).validateClient(), server)
	}

	for _, server := range []string{"ftp://host", "localhost:8080", "://bad"} {
		require.Error(t, (&Config{server: server}).validateClient(), server)
	}

	require.Error(t, (&Config{server: "http://host"}).validatePlay())
	require.NoError(t, (&Config{server: "http://host", promptTimeout: time.Second}).validatePlay())
}

func TestClientURLs(t *testing.T) {
	cfg := &Config{server: "wss://reveal.example/game/"}

	require.Equal(t, "https://reveal.example/game", cfg.httpBase())
	require.Equal(t, "https://reveal.example/game/prompts", cfg.promptsURL())
	require.Equal(t, "https://reveal.example/game/rooms/AB12CD", cfg.roomURL("AB12CD"))

	cfg = &Config{server: "ws://localhost:8080", prompts: "http://bank.local/q"}
	require.Equal(t, "http://localhost:8080", cfg.httpBase())
	require.Equal(t, "http://bank.local/q", cfg.promptsURL())
}

func TestEnvironmentOverridesFlags(t *testing.T) {
	t.Setenv("REVEAL_PORT", "9090")
	t.Setenv("REVEAL_TLS_CERT", "cert.pem")

	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.ParseFlags(nil))

	require.Equal(t, 9090, cfg.port)
	require.Equal(t, "cert.pem", cfg.tlsCert)
	require.Equal(t, "0.0.0.0", cfg.bind)
}

func TestHumanReadableSize(t *testing.T) {
	require.Equal(t, "999 B", humanReadableSize(999))
	require.Equal(t, "1.5 kB", humanReadableSize(1500))
	require.Equal(t, "2.0 MB", humanReadableSize(2_000_000))
}
