package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/notes-auth-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestEnvDefaults(t *testing.T) {
	t.Setenv("API_URL", "")
	t.Setenv("FOLDER", "")
	t.Setenv("REQUEST_TIMEOUT", "")

	c := config.New()
	require.Equal(t, "http://localhost:8080", c.GetAPIURL())
	require.Equal(t, "./data", c.GetDataFolder())
	require.Equal(t, filepath.Join("./data", "session.db"), c.GetSessionFile())
	require.Equal(t, 15*time.Second, c.GetRequestTimeout())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("API_URL", "https://notes.example.com/")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("LOG_LEVEL", "DEBUG")

	c := config.New()
	require.Equal(t, "https://notes.example.com", c.GetAPIURL())
	require.Equal(t, 3*time.Second, c.GetRequestTimeout())
	require.Equal(t, "debug", c.GetLogLevel())

	t.Run("bad timeout falls back", func(t *testing.T) {
		t.Setenv("REQUEST_TIMEOUT", "soon")
		require.Equal(t, 15*time.Second, config.New().GetRequestTimeout())
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("NOTES_DOTENV_PROBE=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("NOTES_DOTENV_PROBE") })

	require.NoError(t, config.LoadDotEnv(filepath.Join(dir, "missing.env"), envFile))
	require.Equal(t, "loaded", os.Getenv("NOTES_DOTENV_PROBE"))

	require.NoError(t, config.LoadDotEnv(filepath.Join(dir, "nothing-here.env")))
}
