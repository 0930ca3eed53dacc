package cliclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/brightloop/provisor/internal/catalog"
	"github.com/brightloop/provisor/internal/config"
	perrors "github.com/brightloop/provisor/internal/errors"
	"github.com/brightloop/provisor/internal/hostapi"
	"github.com/brightloop/provisor/internal/settings"
	"github.com/brightloop/provisor/internal/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) (*httptest.Server, *supervisor.Supervisor) {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)

	doc := map[string]any{"mcpServers": map[string]any{
		"echo": map[string]any{
			"command": exe,
			"args":    []string{"-test.run=TestHelperProcess", "--"},
			"env": map[string]string{
				"GO_WANT_HELPER_PROCESS": "1",
				"FAKE_MCP_SCRIPT":        "happy",
			},
		},
	}}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	cfg, err := config.Parse(data, ".json")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := settings.Default()
	s.HandshakeTimeout, s.DiscoverTimeout, s.CallTimeout = 2*time.Second, 2*time.Second, time.Second
	s.SpawnGrace, s.InitializedSettle = 20*time.Millisecond, time.Millisecond
	sv := supervisor.New(ctx, cfg, s)
	t.Cleanup(sv.Shutdown)

	gw := hostapi.New(sv, catalog.New(sv))
	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)
	return srv, sv
}

func TestClientLoadThenCall(t *testing.T) {
	srv, _ := testServer(t)
	c := New(srv.URL, time.Second)

	lr, err := c.Load("echo")
	require.NoError(t, err)
	assert.Contains(t, lr.Tools, "ping")

	result, err := c.Call("echo", "ping", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "pong", result)
}

func TestClientUnloadUnknownReturnsNotLoaded(t *testing.T) {
	srv, _ := testServer(t)
	c := New(srv.URL, time.Second)

	err := c.Unload("echo")
	require.Error(t, err)
	ke, ok := perrors.As(err)
	require.True(t, ok)
	assert.Equal(t, perrors.NotLoaded, ke.Kind)
}

func TestClientFindToolUnknownReturnsNotFound(t *testing.T) {
	srv, _ := testServer(t)
	c := New(srv.URL, time.Second)
	_, err := c.Load("echo")
	require.NoError(t, err)

	_, found, err := c.FindTool("nonexistent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClientFindToolKnown(t *testing.T) {
	srv, _ := testServer(t)
	c := New(srv.URL, time.Second)
	_, err := c.Load("echo")
	require.NoError(t, err)

	provider, found, err := c.FindTool("ping")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "echo", provider)
}

func TestClientAvailableListsConfiguredProviders(t *testing.T) {
	srv, _ := testServer(t)
	c := New(srv.URL, time.Second)
	names, err := c.Available()
	require.NoError(t, err)
	assert.Contains(t, names, "echo")
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	in := bufio.NewReader(os.Stdin)
	readMsg := func() (map[string]any, bool) {
		line, err := in.ReadBytes('\n')
		if err != nil {
			return nil, false
		}
		var m map[string]any
		if json.Unmarshal(line, &m) != nil {
			return nil, false
		}
		return m, true
	}
	writeResp := func(id any, result any) {
		resp := map[string]any{"jsonrpc": "2.0", "id": id, "result": result}
		data, _ := json.Marshal(resp)
		fmt.Fprintf(os.Stdout, "%s\n", data)
	}

	m, _ := readMsg()
	writeResp(m["id"], map[string]any{})
	readMsg()
	m, _ = readMsg()
	writeResp(m["id"], map[string]any{"tools": []any{map[string]any{"name": "ping"}}})
	for {
		m, ok := readMsg()
		if !ok {
			return
		}
		writeResp(m["id"], map[string]any{"content": []any{
			map[string]any{"type": "text", "text": "pong"},
		}})
	}
}
