package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()

	cfg := Default()
	cfg.Logging.Output = "both"
	cfg.Telemetry.MetricsFile = "metrics/pivot.prom"

	paths, err := cfg.ResolvePaths(base)
	require.NoError(t, err)
	assert.Equal(t, base, paths.BaseDir)
	assert.Equal(t, filepath.Join(base, "data", "exports"), paths.ExportDir)
	assert.Equal(t, filepath.Join(base, "logs", "storepivot.log"), paths.LogFile)
	assert.Equal(t, filepath.Join(base, "metrics", "pivot.prom"), paths.MetricsFile)

	require.NoError(t, paths.EnsureDirectories())
	for _, dir := range []string{paths.ExportDir, filepath.Dir(paths.LogFile), filepath.Dir(paths.MetricsFile)} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestResolvePaths_AbsoluteAndConsole(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "out")
	cfg := Default()
	cfg.Export.Dir = abs

	paths, err := cfg.ResolvePaths(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, abs, paths.ExportDir)
	assert.Empty(t, paths.LogFile, "console logging needs no file")
	assert.Empty(t, paths.MetricsFile)
}

func TestResolvePaths_DefaultsToWorkingDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	paths, err := Default().ResolvePaths("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "data", "exports"), paths.ExportDir)
}
