package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoadPartialFileFillsDefaultsForRest(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "settings.toml")
	require.NoError(t, os.WriteFile(p, []byte(`call_timeout = "10s"`+"\n"), 0o644))

	s, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, s.CallTimeout)
	assert.Equal(t, Default().HandshakeTimeout, s.HandshakeTimeout)
	assert.True(t, s.AutoLoadOnCall)
}

func TestLoadAutoLoadOnCallFlag(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "settings.toml")
	require.NoError(t, os.WriteFile(p, []byte("auto_load_on_call = false\n"), 0o644))

	s, err := Load(p)
	require.NoError(t, err)
	assert.False(t, s.AutoLoadOnCall)
}
