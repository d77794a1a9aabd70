package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "agency-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, "whisper-1", cfg.OpenAI.TranscribeModel)
	assert.Equal(t, int64(24*1024*1024), cfg.OpenAI.ChunkSizeBytes)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 30, cfg.RateLimit.PublicFormPerMinute)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("OPENAI_CHUNK_PARALLELISM", "8")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("AUTH_STAFF_SESSION_TTL_HOURS", "24")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 8, cfg.OpenAI.ChunkParallelism)
	assert.False(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, 24, cfg.Auth.StaffSessionTTLHours)
}

func TestBadIntFallsBack(t *testing.T) {
	t.Setenv("ELEVENLABS_BATCH_SIZE", "four")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.ElevenLabs.BatchSize)
}
