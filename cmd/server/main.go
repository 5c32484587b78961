package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/watchparty/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

var (
	secret           = configVar[string]{"SERVER_SECRET", "secret", "", "Token signing secret"}
	host             = configVar[string]{"SERVER_HOST", "host", "0.0.0.0", "Server host"}
	port             = configVar[int]{"SERVER_PORT", "port", 80, "Server port"}
	logLevel         = configVar[string]{"SERVER_LOG_LEVEL", "log-level", "INFO", "Logging level"}
	membersLimit     = configVar[int]{"SERVER_MEMBERS_LIMIT", "members-limit", 10, "Default participant capacity of a room"}
	membersLimitMax  = configVar[int]{"SERVER_MEMBERS_LIMIT_MAX", "members-limit-max", 50, "Largest capacity a host may request"}
	chatHistoryLimit = configVar[int]{"SERVER_CHAT_HISTORY_LIMIT", "chat-history-limit", 100, "Messages kept per room"}
	messageMaxLength = configVar[int]{"SERVER_MESSAGE_MAX_LENGTH", "message-max-length", 500, "Maximum chat message length in characters"}
	roomTTL          = configVar[time.Duration]{"SERVER_ROOM_TTL", "room-ttl", 24 * time.Hour, "Room lifetime since creation"}
	publicRoomsLimit = configVar[int]{"SERVER_PUBLIC_ROOMS_LIMIT", "public-rooms-limit", 50, "Maximum public rooms returned by a listing"}
	chatRateLimit    = configVar[int]{"SERVER_CHAT_RATE_LIMIT", "chat-rate-limit", 10, "Messages per window per participant, 0 disables"}
	chatRateWindow   = configVar[time.Duration]{"SERVER_CHAT_RATE_WINDOW", "chat-rate-window", 5 * time.Second, "Chat rate limit window"}
	redisHost        = configVar[string]{"REDIS_HOST", "redis-host", "localhost", "Redis host"}
	redisPort        = configVar[int]{"REDIS_PORT", "redis-port", 6379, "Redis port"}
	redisPassword    = configVar[string]{"REDIS_PASSWORD", "redis-password", "", "Redis password"}
	redisDB          = configVar[int]{"REDIS_DB", "redis-db", 0, "Redis database"}
)

func bind[T any](v configVar[T], define func(name string, value T, usage string) *T) {
	define(v.flagKey, v.defaultValue, v.usage)
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func loadAppConfig() *app.AppConfig {
	for _, v := range []configVar[string]{secret, host, logLevel, redisHost, redisPassword} {
		bind(v, pflag.String)
	}
	for _, v := range []configVar[int]{port, membersLimit, membersLimitMax, chatHistoryLimit, messageMaxLength, publicRoomsLimit, chatRateLimit, redisPort, redisDB} {
		bind(v, pflag.Int)
	}
	for _, v := range []configVar[time.Duration]{roomTTL, chatRateWindow} {
		bind(v, pflag.Duration)
	}
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	return &app.AppConfig{
		Secret:           viper.GetString(secret.flagKey),
		Host:             viper.GetString(host.flagKey),
		Port:             viper.GetInt(port.flagKey),
		LogLevel:         viper.GetString(logLevel.flagKey),
		MembersLimit:     viper.GetInt(membersLimit.flagKey),
		MembersLimitMax:  viper.GetInt(membersLimitMax.flagKey),
		ChatHistoryLimit: viper.GetInt(chatHistoryLimit.flagKey),
		MessageMaxLength: viper.GetInt(messageMaxLength.flagKey),
		RoomTTL:          viper.GetDuration(roomTTL.flagKey),
		PublicRoomsLimit: viper.GetInt(publicRoomsLimit.flagKey),
		ChatRateLimit:    viper.GetInt(chatRateLimit.flagKey),
		ChatRateWindow:   viper.GetDuration(chatRateWindow.flagKey),
		RedisHost:        viper.GetString(redisHost.flagKey),
		RedisPort:        viper.GetInt(redisPort.flagKey),
		RedisPassword:    viper.GetString(redisPassword.flagKey),
		RedisDB:          viper.GetInt(redisDB.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
