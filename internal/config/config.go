package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port            int
	DatabaseURL     string
	NatsURL         string
	NatsToken       string
	LogLevel        string
	APIToken        string
	MaxPayloadBytes int
}

func Load() Config {
	return Config{
		Port:            envInt("CONVOEXPORT_PORT", 8460),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		APIToken:        envStr("CONVOEXPORT_API_TOKEN", ""),
		MaxPayloadBytes: envInt("CONVOEXPORT_MAX_PAYLOAD", 50*1024*1024),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
