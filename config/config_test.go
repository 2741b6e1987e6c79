package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, "2006-01-02", cfg.DateTemplate)
	assert.Equal(t, "stdout", cfg.Output)
	assert.Positive(t, cfg.PageCachePages)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dbms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"data_dir: /tmp/dbdata\ndate_template: 02/01/2006\npage_cache_pages: 16\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/dbdata", cfg.DataDir)
	assert.Equal(t, "02/01/2006", cfg.DateTemplate)
	assert.Equal(t, 16, cfg.PageCachePages)
	// Unset keys keep their defaults.
	assert.Equal(t, "dbms.log", cfg.LogFile)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
