// Package config loads process configuration via viper's AutomaticEnv
// binding, with defaults for every knob so the process can start without
// any environment set.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the resolved process configuration.
type Config struct {
	Port                      string
	DatabaseURL               string
	LogLevel                  string
	CORSOrigins               []string
	JWTSigningKey             string
	PlacementCapacityOverride int
	HTTPReadTimeout           time.Duration
	HTTPWriteTimeout          time.Duration
}

// Load reads configuration from the environment, applying defaults for
// port, log level, CORS origins, and HTTP timeouts. A .env file in the
// working directory is loaded first, if present; missing is not an error.
func Load() *Config {
	_ = godotenv.Load()
	viper.AutomaticEnv()
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("CARGOX_LOG_LEVEL", "info")
	viper.SetDefault("CARGOX_CORS_ORIGINS", "*")
	viper.SetDefault("CARGOX_PLACEMENT_CAPACITY_FACTOR_OVERRIDE", 0)
	viper.SetDefault("HTTP_READ_TIMEOUT_SECONDS", 15)
	viper.SetDefault("HTTP_WRITE_TIMEOUT_SECONDS", 15)

	origins := viper.GetString("CARGOX_CORS_ORIGINS")
	return &Config{
		Port:                      viper.GetString("PORT"),
		DatabaseURL:               viper.GetString("DATABASE_URL"),
		LogLevel:                  viper.GetString("CARGOX_LOG_LEVEL"),
		CORSOrigins:               splitCSV(origins),
		JWTSigningKey:             viper.GetString("JWT_SIGNING_KEY"),
		PlacementCapacityOverride: viper.GetInt("CARGOX_PLACEMENT_CAPACITY_FACTOR_OVERRIDE"),
		HTTPReadTimeout:           time.Duration(viper.GetInt("HTTP_READ_TIMEOUT_SECONDS")) * time.Second,
		HTTPWriteTimeout:          time.Duration(viper.GetInt("HTTP_WRITE_TIMEOUT_SECONDS")) * time.Second,
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
