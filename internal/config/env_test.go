package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnv(t *testing.T) {
	t.Setenv("SESSIONSTATE_DRIVER", "redis")
	t.Setenv("SESSIONSTATE_REDIS_ADDR", "10.0.0.2:6379")
	t.Setenv("SESSIONSTATE_REDIS_DB", "3")
	t.Setenv("SESSIONSTATE_ENCRYPT", "true")

	c := &Config{}
	c.LoadDefaults()
	parseEnv(c)

	assert.Equal(t, "redis", c.Driver)
	assert.Equal(t, "10.0.0.2:6379", c.RedisAddr)
	assert.Equal(t, 3, c.RedisDB)
	assert.True(t, c.Encrypt)
	assert.Equal(t, "sessionstate.db", c.DatabaseDSN, "unset vars keep defaults")
}

func TestParseEnv_InvalidNumbersIgnored(t *testing.T) {
	t.Setenv("SESSIONSTATE_REDIS_DB", "not-a-number")
	t.Setenv("SESSIONSTATE_ENCRYPT", "maybe")

	c := &Config{}
	c.LoadDefaults()
	parseEnv(c)

	assert.Equal(t, 0, c.RedisDB)
	assert.False(t, c.Encrypt)
}
