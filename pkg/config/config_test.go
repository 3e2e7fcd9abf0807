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
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "micronet.env")
	content := "MICRONET_NSENTER=/sbin/nsenter\nMICRONET_TERM_GRACE=3s\nMICRONET_PREFIX_LEN=24\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/sbin/nsenter", cfg.Nsenter)
	assert.Equal(t, 3*time.Second, cfg.TermGrace)
	assert.Equal(t, 24, cfg.PrefixLen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/usr/bin/unshare", cfg.Unshare)
}

func TestLoad_InvalidPrefixLen(t *testing.T) {
	t.Setenv("MICRONET_PREFIX_LEN", "200")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}
