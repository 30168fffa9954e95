package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port             int
	APIToken         string
	AgentBaseURL     string
	AgentTimeoutSecs int
	DatabaseURL      string
	NatsURL          string
	NatsToken        string
	RedisAddr        string
	LogLevel         string
}

func Load() Config {
	return Config{
		Port:             envInt("GENIE_PORT", 8760),
		APIToken:         envStr("GENIE_API_TOKEN", ""),
		AgentBaseURL:     envStr("AGENT_BASE_URL", "http://genie-agent:8000"),
		AgentTimeoutSecs: envInt("AGENT_TIMEOUT_SECONDS", 120),
		DatabaseURL:      envStr("DATABASE_URL", ""),
		NatsURL:          envStr("NATS_URL", ""),
		NatsToken:        envStr("NATS_TOKEN", ""),
		RedisAddr:        envStr("REDIS_ADDR", ""),
		LogLevel:         envStr("LOG_LEVEL", "info"),
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
