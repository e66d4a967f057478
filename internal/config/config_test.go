package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, used, err := Load("", nil)
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, DefaultBackendURL, cfg.BackendURL)
	assert.Equal(t, DefaultStateFile, cfg.StatePath)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultAutosaveInterval, cfg.GetAutosave().Interval)
	assert.Equal(t, DefaultUIPort, cfg.GetUIConfig().Port)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flowcanvas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend_url: http://backend:9000
project: 12
timeout: 90s
autosave:
  interval: 5s
  coalesce: 250ms
ui:
  port: 9100
`), 0o644))
	chdir(t, dir)

	cfg, used, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "http://backend:9000", cfg.BackendURL)
	assert.Equal(t, 12, cfg.ProjectID)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, 5*time.Second, cfg.GetAutosave().Interval)
	assert.Equal(t, 250*time.Millisecond, cfg.GetAutosave().Coalesce)
	assert.Equal(t, 9100, cfg.GetUIConfig().Port)
}

func TestConfigFileFoundUpward(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flowcanvas.yml"),
		[]byte("project: 3\n"), 0o644))
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	chdir(t, nested)

	cfg, used, err := Load("", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, used)
	assert.Equal(t, 3, cfg.ProjectID)
}

func TestEnvOverridesFileAndFlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flowcanvas.yaml"),
		[]byte("backend_url: http://from-file:8000\nproject: 1\n"), 0o644))
	chdir(t, dir)
	t.Setenv("FLOWCANVAS_BACKEND_URL", "http://from-env:8000")

	cfg, _, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:8000", cfg.BackendURL)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("backend-url", "", "")
	flags.Int("project", 0, "")
	require.NoError(t, flags.Parse([]string{"--backend-url", "http://from-flag:8000", "--project", "42"}))

	cfg, _, err = Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "http://from-flag:8000", cfg.BackendURL)
	assert.Equal(t, 42, cfg.ProjectID)
}

func TestValidationRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "flowcanvas.yaml"),
		[]byte("backend_url: ftp://nope\n"), 0o644))
	_, _, err := Load("", nil)
	assert.ErrorContains(t, err, "backend_url")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "flowcanvas.yaml"),
		[]byte("output: csv\n"), 0o644))
	_, _, err = Load("", nil)
	assert.ErrorContains(t, err, "output")
}
