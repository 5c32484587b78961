package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/controller"
	"github.com/sharetube/watchparty/internal/identity"
	ratelimitRedis "github.com/sharetube/watchparty/internal/repository/ratelimit/redis"
	roomRedis "github.com/sharetube/watchparty/internal/repository/room/redis"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/sharetube/watchparty/pkg/redisclient"
)

const shutdownTimeout = 30 * time.Second

type AppConfig struct {
	Secret           string        `json:"-"`
	Host             string        `json:"host"`
	Port             int           `json:"port"`
	LogLevel         string        `json:"log_level"`
	MembersLimit     int           `json:"members_limit"`
	MembersLimitMax  int           `json:"members_limit_max"`
	ChatHistoryLimit int           `json:"chat_history_limit"`
	MessageMaxLength int           `json:"message_max_length"`
	RoomTTL          time.Duration `json:"room_ttl"`
	PublicRoomsLimit int           `json:"public_rooms_limit"`
	ChatRateLimit    int           `json:"chat_rate_limit"`
	ChatRateWindow   time.Duration `json:"chat_rate_window"`
	RedisHost        string        `json:"redis_host"`
	RedisPort        int           `json:"redis_port"`
	RedisPassword    string        `json:"-"`
	RedisDB          int           `json:"redis_db"`
}

func (cfg *AppConfig) Validate() error {
	return validation.ValidateStruct(cfg,
		validation.Field(&cfg.Secret, validation.Required),
		validation.Field(&cfg.Host, validation.Required),
		validation.Field(&cfg.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&cfg.LogLevel, validation.Required, validation.In("DEBUG", "INFO", "WARN", "ERROR")),
		validation.Field(&cfg.MembersLimit, validation.Required, validation.Min(1), validation.Max(cfg.MembersLimitMax)),
		validation.Field(&cfg.MembersLimitMax, validation.Required, validation.Min(1)),
		validation.Field(&cfg.ChatHistoryLimit, validation.Required, validation.Min(1)),
		validation.Field(&cfg.MessageMaxLength, validation.Required, validation.Min(1)),
		validation.Field(&cfg.RoomTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&cfg.PublicRoomsLimit, validation.Required, validation.Min(1)),
		validation.Field(&cfg.ChatRateLimit, validation.Min(0)),
		validation.Field(&cfg.ChatRateWindow, validation.When(cfg.ChatRateLimit > 0, validation.Required, validation.Min(time.Millisecond))),
		validation.Field(&cfg.RedisHost, validation.Required),
		validation.Field(&cfg.RedisPort, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&cfg.RedisDB, validation.Min(0)),
	)
}

func (cfg *AppConfig) roomConfig() room.Config {
	return room.Config{
		MembersLimit:     cfg.MembersLimit,
		MembersLimitMax:  cfg.MembersLimitMax,
		ChatHistoryLimit: cfg.ChatHistoryLimit,
		MessageMaxLength: cfg.MessageMaxLength,
		RoomTTL:          cfg.RoomTTL,
		PublicRoomsLimit: cfg.PublicRoomsLimit,
		ChatRateLimit:    cfg.ChatRateLimit,
		ChatRateWindow:   cfg.ChatRateWindow,
	}
}

func newLogger(level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

type application struct {
	handler     http.Handler
	roomService interface{ Close() }
}

func newApplication(cfg *AppConfig, rc *redis.Client, logger *slog.Logger) *application {
	roomRepo := roomRedis.NewRepo(rc, logger)
	limiter := ratelimitRedis.NewLimiter(rc, logger)
	roomService := room.NewService(roomRepo, limiter, cfg.roomConfig(), logger)
	auth := identity.NewAuthenticator(cfg.Secret)
	ctrl := controller.NewController(roomService, auth, logger)

	return &application{
		handler:     ctrl.GetMux(),
		roomService: roomService,
	}
}

// Run serves until ctx is cancelled or the process receives a termination signal.
func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	app := newApplication(cfg, rc, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: app.handler}

	// graceful shutdown
	serverCtx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		app.roomService.Close()
		return err
	case <-serverCtx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	// websockets are hijacked and not tracked by Shutdown; closing the rooms drops them
	app.roomService.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
