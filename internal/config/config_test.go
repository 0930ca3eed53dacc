package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONAndYAMLAreEquivalent(t *testing.T) {
	jsonDoc := []byte(`{"mcpServers":{"echo":{"command":"fake","args":["--echo"],"env":{"K":"V"}}}}`)
	yamlDoc := []byte("mcpServers:\n  echo:\n    command: fake\n    args: [\"--echo\"]\n    env:\n      K: V\n")

	vj, err := Parse(jsonDoc, ".json")
	require.NoError(t, err)
	vy, err := Parse(yamlDoc, ".yaml")
	require.NoError(t, err)

	dj, ok := vj.Lookup("echo")
	require.True(t, ok)
	dy, ok := vy.Lookup("echo")
	require.True(t, ok)
	assert.Equal(t, dj, dy)
}

func TestLoadMissingFileYieldsEmptyView(t *testing.T) {
	v, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, v.Names())
}

func TestLoadSkipsEntriesMissingCommand(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"mcpServers":{"bad":{"args":["x"]}}}`), 0o644))

	v, err := Load(p)
	require.NoError(t, err)
	_, ok := v.Lookup("bad")
	assert.False(t, ok)
}

func TestLookupUnknownProvider(t *testing.T) {
	v, err := Parse([]byte(`{"mcpServers":{}}`), ".json")
	require.NoError(t, err)
	_, ok := v.Lookup("missing")
	assert.False(t, ok)
}
