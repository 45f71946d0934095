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
	for _, key := range []string{"PORT", "ROBOFLOW_API_KEY", "PROXY_URL", "DEFAULT_MODEL_ID", "DEFAULT_CONFIDENCE", "UPLOAD_TTL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, 8080, cfg.Port)
	assert.Empty(t, cfg.RoboflowAPIKey)
	assert.Equal(t, "https://serverless.roboflow.com", cfg.RoboflowAPIURL)
	assert.Equal(t, "http://127.0.0.1:8080/api/infer", cfg.ProxyURL)
	assert.Equal(t, "ripeness-detection_1/1", cfg.DefaultModelID)
	assert.InDelta(t, 0.25, cfg.DefaultConfidence, 1e-9)
	assert.Equal(t, 500, cfg.MaxHeight)
	assert.Equal(t, 30*time.Minute, cfg.UploadTTL)
	assert.Zero(t, cfg.UpstreamTimeout)
	assert.Equal(t, "#9b59b6", cfg.Palette.Default)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ROBOFLOW_API_KEY", "secret")
	t.Setenv("DEFAULT_CONFIDENCE", "0.6")
	t.Setenv("UPSTREAM_TIMEOUT", "15s")
	t.Setenv("UPLOAD_LIMIT", "not-a-number")
	t.Setenv("PROXY_URL", "")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "secret", cfg.RoboflowAPIKey)
	assert.InDelta(t, 0.6, cfg.DefaultConfidence, 1e-9)
	assert.Equal(t, 15*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 16, cfg.UploadLimit)
	assert.Equal(t, "http://127.0.0.1:9090/api/infer", cfg.ProxyURL)
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
}

func TestLoadDotEnv_SetsVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RIPENESS_TEST_KEY=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("RIPENESS_TEST_KEY") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv("RIPENESS_TEST_KEY"))
}

func TestLoadPalette_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette.yaml")
	body := "classes:\n  Overripe: \"#d35400\"\n  bruised: \"#7f8c8d\"\ndefault: \"#000000\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	palette, err := LoadPalette(path)
	require.NoError(t, err)

	assert.Equal(t, "#d35400", palette.Classes["overripe"])
	assert.Equal(t, "#7f8c8d", palette.Classes["bruised"])
	assert.Equal(t, "#27ae60", palette.Classes["ripe"])
	assert.Equal(t, "#000000", palette.Default)
}

func TestLoadPalette_EmptyPathReturnsDefaults(t *testing.T) {
	palette, err := LoadPalette("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPalette(), palette)
}

func TestLoadPalette_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classes: [unterminated"), 0o600))

	_, err := LoadPalette(path)
	assert.Error(t, err)
}
