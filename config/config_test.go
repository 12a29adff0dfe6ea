package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "settlement", cfg.Database.DBName)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)

	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "transfers", cfg.Kafka.Topic)
	assert.Equal(t, "settlement-service", cfg.Kafka.GroupID)
	assert.Equal(t, "transfers.dead-letter", cfg.Kafka.DeadLetterTopic)

	assert.Equal(t, "http://localhost:8081", cfg.Incentive.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Incentive.Timeout)
	assert.Equal(t, 3, cfg.Incentive.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Incentive.Backoff)

	assert.Equal(t, 5, cfg.Consumer.MaxRetries)
	assert.Equal(t, time.Second, cfg.Consumer.Backoff)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
}

func TestLoad_FromYAMLFile(t *testing.T) {
	content := []byte(`
server:
  host: "127.0.0.1"
  port: 9090
  mode: "release"
database:
  host: "db.example.com"
  port: 5433
  user: "appuser"
  dbname: "ledgerdb"
kafka:
  topic: "payments"
  group_id: "settlers"
incentive:
  base_url: "http://incentive.internal:9000"
  max_attempts: 5
consumer:
  max_retries: 3
  backoff: "2s"
`)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, "ledgerdb", cfg.Database.DBName)
	assert.Equal(t, "payments", cfg.Kafka.Topic)
	assert.Equal(t, "settlers", cfg.Kafka.GroupID)
	assert.Equal(t, "http://incentive.internal:9000", cfg.Incentive.BaseURL)
	assert.Equal(t, 5, cfg.Incentive.MaxAttempts)
	assert.Equal(t, 3, cfg.Consumer.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Consumer.Backoff)

	// Values absent from the file keep their defaults.
	assert.Equal(t, "transfers.dead-letter", cfg.Kafka.DeadLetterTopic)
	assert.Equal(t, 3*time.Second, cfg.Incentive.Timeout)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TSS_KAFKA_TOPIC", "transfers-prod")
	t.Setenv("TSS_DATABASE_HOST", "pg.internal")
	t.Setenv("TSS_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "transfers-prod", cfg.Kafka.Topic)
	assert.Equal(t, "pg.internal", cfg.Database.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "u", Password: "p",
		DBName: "settlement", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://u:p@localhost:5432/settlement?sslmode=disable", d.DSN())
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.Addr())
}
