package config

import (
	"encoding/json"
	"os"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. Pointer fields distinguish "absent" from "set to the zero value", so
// a partial file overrides only the keys it names.
type JsonConfig struct {
	Driver         *string `json:"driver"`
	DatabaseDSN    *string `json:"database_dsn"`
	RedisAddr      *string `json:"redis_addr"`
	RedisPassword  *string `json:"redis_password"`
	RedisDB        *int    `json:"redis_db"`
	RedisKeyPrefix *string `json:"redis_key_prefix"`
	Encrypt        *bool   `json:"encrypt"`
	Debug          *bool   `json:"debug"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; when neither is set no file is loaded. An unreadable or invalid
// file panics.
func parseJson(config *Config) {
	jsonConfigFile := jsonConfigPath()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.Driver != nil {
		config.Driver = *c.Driver
	}
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.RedisAddr != nil {
		config.RedisAddr = *c.RedisAddr
	}
	if c.RedisPassword != nil {
		config.RedisPassword = *c.RedisPassword
	}
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	if c.RedisKeyPrefix != nil {
		config.RedisKeyPrefix = *c.RedisKeyPrefix
	}
	if c.Encrypt != nil {
		config.Encrypt = *c.Encrypt
	}
	if c.Debug != nil {
		config.Debug = *c.Debug
	}
}
