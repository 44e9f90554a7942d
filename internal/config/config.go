// Package config handles configuration for the session daemon,
// including defaults, environment variables, JSON overlay, and
// command-line flags.
package config

// Driver names accepted in the Driver field.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config holds runtime settings for the session daemon.
//
// Fields:
//   - Driver: storage driver, one of "memory", "sqlite", "postgres", "redis".
//   - DatabaseDSN: DSN for the sqlite or postgres drivers.
//   - RedisAddr / RedisPassword / RedisDB / RedisKeyPrefix: redis driver settings.
//   - Encrypt: wrap the backend with at-rest encryption.
//   - Passphrase: encryption passphrase; prompted interactively when empty.
//   - Debug: verbose logging.
type Config struct {
	Driver         string
	DatabaseDSN    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
	Encrypt        bool
	Passphrase     string
	Debug          bool
}

// LoadDefaults populates Config with local development defaults.
func (c *Config) LoadDefaults() {
	c.Driver = DriverSQLite
	c.DatabaseDSN = "sessionstate.db"
	c.RedisAddr = "localhost:6379"
	c.RedisDB = 0
	c.RedisKeyPrefix = "sessionstate"
	c.Encrypt = false
	c.Debug = false
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment, an optional JSON file, and finally command-line
// flags. Later layers win.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
