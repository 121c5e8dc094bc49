package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "local", cfg.StorageBackend)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, []string{"png", "jpg", "jpeg", "gif"}, cfg.AllowedExtensions)
	assert.True(t, cfg.ChatRequireMatch)
	assert.False(t, cfg.PushEnabled())
}

func TestLoadNormalizesLists(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("ALLOWED_EXTENSIONS", ".PNG, webp")
	t.Setenv("BASE_URL", "https://api.synergy.test/")
	t.Setenv("STORAGE_BACKEND", " Local ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"png", "webp"}, cfg.AllowedExtensions)
	assert.Equal(t, "https://api.synergy.test", cfg.BaseURL)
	assert.Equal(t, "local", cfg.StorageBackend)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "ftp")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresBackendSettings(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "s3")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("BUCKET_NAME", "synergy-photos")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "synergy-photos", cfg.S3Bucket)

	t.Setenv("STORAGE_BACKEND", "cloudinary")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("JWT_EXPIRY", "soon")

	_, err := Load()
	assert.Error(t, err)
}
