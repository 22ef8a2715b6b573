package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "https://tools.madison-co.net", cfg.Portal.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Portal.RateLimitDelay)
	assert.Equal(t, 5, cfg.Worker.Concurrency)
	assert.Equal(t, 30*time.Minute, cfg.Worker.StaleThreshold)
	assert.True(t, cfg.Worker.Resume)
	assert.Equal(t, 100, cfg.Worker.CheckpointEvery)
	assert.True(t, cfg.Optimizer.Enabled)
	assert.Equal(t, 120*time.Second, cfg.Optimizer.Timeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "12")
	t.Setenv("PORTAL_RATE_LIMIT_DELAY", "2s")
	t.Setenv("SEND_LOGS_TO_AXIOM", "1")
	t.Setenv("AXIOM_DATASET", "prod")
	t.Setenv("DB_PORT", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, 12, cfg.Worker.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.Portal.RateLimitDelay)
	assert.True(t, cfg.Axiom.Send)
	assert.Equal(t, "prod_titleplant", cfg.Axiom.Dataset)
	assert.Equal(t, 5432, cfg.DB.Port)
}

func TestDSN(t *testing.T) {
	d := DBConfig{Host: "db", Port: 5433, Name: "index", User: "u", Password: "p"}
	assert.Equal(t, "host=db port=5433 dbname=index user=u password=p", d.DSN())
}
