package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pklgo/pklcore/config"
)

func TestDefault_UsesBaseLayerValues(t *testing.T) {
	opts := config.Default()
	require.Equal(t, ".pklcore-cache", opts.CacheDir)
	require.Equal(t, "xml", opts.OutputFormat)
	require.Equal(t, 30*time.Second, opts.Timeout)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("PKLCORE_OUTPUTFORMAT", "json")
	opts, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "json", opts.OutputFormat)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/pklcore.yaml"
	require.NoError(t, os.WriteFile(path, []byte("cacheDir: /tmp/custom-cache\n"), 0o644))

	opts, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom-cache", opts.CacheDir)
}
