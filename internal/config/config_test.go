package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsNeedSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("MENTORHUB_JWT_SECRET", "")

	_, err := Load(New(), "")
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MENTORHUB_JWT_SECRET", "s3cret")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StoreMongo, cfg.Store)
	assert.Equal(t, "learner", cfg.LockPolicy)
	assert.Equal(t, 54*time.Second, cfg.WS.PingPeriod)
	assert.Equal(t, 60*time.Second, cfg.WS.PongWait)
	assert.Equal(t, 256, cfg.WS.SendBuffer)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLoad_LegacyEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "legacy")
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_URI", "redis://cache:6379")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.JWTSecret)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "cache:6379", cfg.RedisAddr())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mentorhub.yaml")
	body := "jwt_secret: fromfile\nstore: memory\nlock_policy: participant\nws:\n  send_buffer: 8\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "participant", cfg.LockPolicy)
	assert.Equal(t, 8, cfg.WS.SendBuffer)
}

func TestValidate(t *testing.T) {
	t.Setenv("MENTORHUB_JWT_SECRET", "x")
	t.Setenv("MENTORHUB_STORE", "sqlite")

	_, err := Load(New(), "")
	assert.ErrorContains(t, err, "unknown store")
}

func TestValidate_PresenceOutlivesPongWait(t *testing.T) {
	t.Setenv("MENTORHUB_JWT_SECRET", "x")
	t.Setenv("MENTORHUB_PRESENCE_TTL", "30s")

	_, err := Load(New(), "")
	assert.ErrorContains(t, err, "presence_ttl")
}
