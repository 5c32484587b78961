package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *AppConfig {
	return &AppConfig{
		Secret:           "secret",
		Host:             "0.0.0.0",
		Port:             80,
		LogLevel:         "INFO",
		MembersLimit:     10,
		MembersLimitMax:  50,
		ChatHistoryLimit: 100,
		MessageMaxLength: 500,
		RoomTTL:          24 * time.Hour,
		PublicRoomsLimit: 50,
		ChatRateLimit:    10,
		ChatRateWindow:   5 * time.Second,
		RedisHost:        "localhost",
		RedisPort:        6379,
	}
}

func TestAppConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		modify func(*AppConfig)
	}{
		{"missing secret", func(c *AppConfig) { c.Secret = "" }},
		{"bad port", func(c *AppConfig) { c.Port = 70000 }},
		{"unknown log level", func(c *AppConfig) { c.LogLevel = "LOUD" }},
		{"members limit above max", func(c *AppConfig) { c.MembersLimit = 51 }},
		{"zero chat history", func(c *AppConfig) { c.ChatHistoryLimit = 0 }},
		{"tiny ttl", func(c *AppConfig) { c.RoomTTL = time.Second }},
		{"rate limit without window", func(c *AppConfig) { c.ChatRateWindow = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := validConfig()
	cfg.ChatRateLimit = 0
	cfg.ChatRateWindow = 0
	assert.NoError(t, cfg.Validate(), "rate limiting can be switched off")
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("debug")
	assert.NoError(t, err)

	_, err = newLogger("nope")
	assert.Error(t, err)
}

func TestApplicationServesApi(t *testing.T) {
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rc.Close()

	logger, err := newLogger("ERROR")
	require.NoError(t, err)

	app := newApplication(validConfig(), rc, logger)
	defer app.roomService.Close()

	srv := httptest.NewServer(app.handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/rooms")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/me/room")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
