package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables. A .env file in
// the working directory is loaded first; variables already present in the
// environment keep their values.
//
// Recognized variables:
//
//	SESSIONSTATE_DRIVER          storage driver name
//	SESSIONSTATE_DSN             database DSN (sqlite path or postgres DSN)
//	SESSIONSTATE_REDIS_ADDR      redis host:port
//	SESSIONSTATE_REDIS_PASSWORD  redis password
//	SESSIONSTATE_REDIS_DB        redis database number
//	SESSIONSTATE_REDIS_PREFIX    redis key prefix
//	SESSIONSTATE_ENCRYPT         "true" to enable at-rest encryption
//	SESSIONSTATE_PASSPHRASE      encryption passphrase
//	SESSIONSTATE_DEBUG           "true" for verbose logging
func parseEnv(config *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("SESSIONSTATE_DRIVER"); v != "" {
		config.Driver = v
	}
	if v := os.Getenv("SESSIONSTATE_DSN"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("SESSIONSTATE_REDIS_ADDR"); v != "" {
		config.RedisAddr = v
	}
	if v := os.Getenv("SESSIONSTATE_REDIS_PASSWORD"); v != "" {
		config.RedisPassword = v
	}
	if v := os.Getenv("SESSIONSTATE_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.RedisDB = n
		}
	}
	if v := os.Getenv("SESSIONSTATE_REDIS_PREFIX"); v != "" {
		config.RedisKeyPrefix = v
	}
	if v := os.Getenv("SESSIONSTATE_ENCRYPT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Encrypt = b
		}
	}
	if v := os.Getenv("SESSIONSTATE_PASSPHRASE"); v != "" {
		config.Passphrase = v
	}
	if v := os.Getenv("SESSIONSTATE_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Debug = b
		}
	}
}
