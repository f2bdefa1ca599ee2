package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_DRIVER", "REDIS_ADDR", "KAFKA_BROKERS", "DEFAULT_CURRENCY",
		"DEFAULT_DUE_DATE_DAYS", "IDEMPOTENCY_TTL_SECONDS", "DATABASE_AUTO_MIGRATE"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "USD", cfg.Business.DefaultCurrency)
	assert.Equal(t, 30, cfg.Business.DefaultDueDays)
	assert.Equal(t, 24*time.Hour, cfg.Business.IdempotencyTTL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", DriverMemory)
	t.Setenv("DATABASE_AUTO_MIGRATE", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("DEFAULT_DUE_DATE_DAYS", "14")

	cfg := Load()

	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 14, cfg.Business.DefaultDueDays)
}
