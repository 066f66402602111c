package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "env: test\n")

	require.NoError(t, LoadConfig(path))
	assert.Equal(t, "test", AppConfig.Env)
	assert.Equal(t, 8080, AppConfig.Backend.Port)
	assert.Equal(t, "memory", AppConfig.Storage.Driver)
	assert.Equal(t, "last_write_wins", AppConfig.Storage.Policy)
	assert.Equal(t, "local", AppConfig.Notifier.Driver)
	assert.Equal(t, 12*time.Hour, AppConfig.Admin.TokenTTL)
}

func TestLoadConfigReadsSections(t *testing.T) {
	path := writeConfig(t, `
env: production
backend:
  port: 9090
  cors_origins: ["https://ruangcerita.id"]
storage:
  driver: redis
  policy: optimistic
  max_retries: 3
redis:
  host: cache
  channel: chat
notifier:
  driver: redis
admin:
  name: Moderator
  token_ttl: 30m
`)

	require.NoError(t, LoadConfig(path))
	assert.Equal(t, 9090, AppConfig.Backend.Port)
	assert.Equal(t, []string{"https://ruangcerita.id"}, AppConfig.Backend.CORSOrigins)
	assert.Equal(t, "optimistic", AppConfig.Storage.Policy)
	assert.Equal(t, 3, AppConfig.Storage.MaxRetries)
	assert.Equal(t, "cache", AppConfig.Redis.Host)
	assert.Equal(t, 6379, AppConfig.Redis.Port)
	assert.Equal(t, "Moderator", AppConfig.Admin.Name)
	assert.Equal(t, 30*time.Minute, AppConfig.Admin.TokenTTL)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("RABBITMQ_URL", "amqp://guest:guest@mq:5672/")
	path := writeConfig(t, "notifier:\n  driver: amqp\n")

	require.NoError(t, LoadConfig(path))
	assert.Equal(t, "from-env", AppConfig.Admin.JWTSecret)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", AppConfig.Notifier.AMQPURL)
}

func TestLoadConfigRejectsUnknownDrivers(t *testing.T) {
	for _, body := range []string{
		"storage:\n  driver: etcd\n",
		"storage:\n  policy: first_write_wins\n",
		"notifier:\n  driver: kafka\n",
	} {
		assert.Error(t, LoadConfig(writeConfig(t, body)), body)
	}
}

func TestAMQPDriverNeedsURL(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")
	assert.Error(t, LoadConfig(writeConfig(t, "notifier:\n  driver: amqp\n")))
}

func TestLoadConfigMissingFile(t *testing.T) {
	assert.Error(t, LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestDefault(t *testing.T) {
	conf := Default()
	assert.NoError(t, conf.validate())
	assert.Equal(t, "ruangcerita", conf.Backend.Service)
}
