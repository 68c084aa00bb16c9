package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "markethub.db", cfg.DatabaseURL)
	assert.Equal(t, 24*60*60, cfg.JWTExpiration)
	assert.Equal(t, int64(5*1024*1024), cfg.MaxFileSize)
	assert.Equal(t, 256, cfg.TaskQueueSize)
	assert.Equal(t, 2, cfg.TaskQueueWorkers)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("TASK_QUEUE_WORKERS", "8")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 8, cfg.TaskQueueWorkers)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	assert.NoError(t, cfg.Validate())

	cfg.Environment = "staging"
	assert.Error(t, cfg.Validate())

	cfg.Environment = "test"
	cfg.JWTSecret = ""
	assert.Error(t, cfg.Validate())
}
