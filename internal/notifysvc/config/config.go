package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Port      string `validate:"required,numeric"`
	RateLimit int    `validate:"gt=0"`
	NatsURL   string `validate:"required"`
	NatsToken string
	JWTSecret string `validate:"required"`
}

func Load() (Config, error) {
	c := Config{
		Port:      os.Getenv("NOTIFY_SERVICE_PORT"),
		NatsURL:   os.Getenv("NATS_URL"),
		NatsToken: os.Getenv("NATS_TOKEN"),
		JWTSecret: os.Getenv("JWT_SECRET_KEY"),
	}
	if c.Port == "" {
		c.Port = "8081"
	}

	rateLimitStr := os.Getenv("RATE_LIMIT")
	if rateLimitStr == "" {
		rateLimitStr = "120"
	}
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		return c, fmt.Errorf("invalid RATE_LIMIT value: %w", err)
	}
	c.RateLimit = rateLimit

	if err := validator.New().Struct(&c); err != nil {
		return c, fmt.Errorf("invalid notify service config: %w", err)
	}

	return c, nil
}
