package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvFile(t *testing.T) {
	// Empty variables are ignored by viper, so the file values apply.
	for _, k := range keys {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	content := "DATABASE_URL=postgres://localhost/social\nJWT_SECRET=secret\nCORS_ORIGINS=http://a.test, http://b.test\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))

	c, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/social", c.DatabaseURL)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "matchsocial.events", c.RedisChannel)
	assert.Equal(t, 1024, c.HubQueueSize)
	assert.Equal(t, 256, c.ClientQueueSize)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.AllowedOrigins())
	assert.False(t, c.Production())
	assert.Equal(t, ".env", filepath.Base(c.EnvFile))
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DATABASE_URL=file\nJWT_SECRET=s\n"), 0o600))
	t.Setenv("DATABASE_URL", "env")
	t.Setenv("ENVIRONMENT", "production")

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "env", c.DatabaseURL)
	assert.True(t, c.Production())
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.Load")
}

func TestLoadWithoutEnvFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/social")
	t.Setenv("JWT_SECRET", "s")

	c, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, c.EnvFile)
	assert.Equal(t, "postgres://env/social", c.DatabaseURL)
}
