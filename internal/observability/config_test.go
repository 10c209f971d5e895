package observability

import (
	"testing"

	"github.com/smallbiznis/royalty/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment:       "production",
		AppVersion:        " 1.2.0 ",
		LogLevel:          "info",
		OtelEnabled:       true,
		OtelSamplingRatio: 3,
	})

	assert.Equal(t, "royalty", cfg.ServiceName)
	assert.Equal(t, "1.2.0", cfg.Version)
	assert.False(t, cfg.OtelEnabled, "tracing needs an endpoint")
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio)
	assert.False(t, cfg.Debug())
}

func TestConfigDebug(t *testing.T) {
	assert.True(t, Config{Environment: "local"}.Debug())
	assert.True(t, Config{Environment: "production", LogLevel: "DEBUG"}.Debug())
	assert.False(t, Config{Environment: "staging", LogLevel: "warn"}.Debug())
}
