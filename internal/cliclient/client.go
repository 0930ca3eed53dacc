// Package cliclient is the provisorctl CLI's HTTP client for HostGateway's
// /rpc endpoint.
package cliclient

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/brightloop/provisor/internal/catalog"
	perrors "github.com/brightloop/provisor/internal/errors"
	"github.com/brightloop/provisor/internal/supervisor"
)

// Client calls a running provisord's HostGateway over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against baseURL (e.g. "http://127.0.0.1:8710").
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type rpcEnvelope struct {
	Success bool                     `json:"success"`
	Result  json.RawMessage          `json:"result,omitempty"`
	Error   *perrors.ClassifiedError `json:"error,omitempty"`
}

// call issues one /rpc request and decodes its result into out (if non-nil).
func (c *Client) call(method string, params any, out any) error {
	body := map[string]any{"method": method}
	if params != nil {
		body["params"] = params
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/rpc", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return perrors.New(perrors.ProviderDead, "could not reach provisord: "+err.Error())
	}
	defer resp.Body.Close()

	var env rpcEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return perrors.New(perrors.ProtocolError, "malformed response from provisord: "+err.Error())
	}
	if !env.Success {
		if env.Error != nil {
			return perrors.New(env.Error.Kind, env.Error.Message)
		}
		return perrors.New(perrors.ProtocolError, "provisord reported failure with no error detail")
	}
	if out != nil && len(env.Result) > 0 {
		return json.Unmarshal(env.Result, out)
	}
	return nil
}

// Load asks provisord to load a provider by name.
func (c *Client) Load(name string) (supervisor.LoadResult, error) {
	var r supervisor.LoadResult
	err := c.call("load", map[string]string{"name": name}, &r)
	return r, err
}

// Unload asks provisord to unload a provider by name.
func (c *Client) Unload(name string) error {
	return c.call("unload", map[string]string{"name": name}, nil)
}

// Reload asks provisord to unload-then-load a provider by name.
func (c *Client) Reload(name string) (supervisor.LoadResult, error) {
	var r supervisor.LoadResult
	err := c.call("reload", map[string]string{"name": name}, &r)
	return r, err
}

// Refresh asks provisord to re-run discovery on an already-loaded provider.
func (c *Client) Refresh(name string) (supervisor.LoadResult, error) {
	var r supervisor.LoadResult
	err := c.call("refresh", map[string]string{"name": name}, &r)
	return r, err
}

// Call invokes tool on provider name with arguments, auto-loading per
// provisord's configured policy.
func (c *Client) Call(name, tool string, arguments map[string]any) (any, error) {
	var result any
	err := c.call("call", map[string]any{"name": name, "tool": tool, "arguments": arguments}, &result)
	return result, err
}

// ListLoaded returns every currently loaded provider's status.
func (c *Client) ListLoaded() ([]supervisor.LoadedInfo, error) {
	var infos []supervisor.LoadedInfo
	err := c.call("list_loaded", nil, &infos)
	return infos, err
}

// Available returns the names of every provider the configuration declares.
func (c *Client) Available() ([]string, error) {
	var names []string
	err := c.call("available", nil, &names)
	return names, err
}

// Search lists every tool of every loaded provider. Use FindTool to locate a
// single tool by name.
func (c *Client) Search() ([]catalog.ToolEntry, error) {
	var entries []catalog.ToolEntry
	err := c.call("search", map[string]string{"tool": ""}, &entries)
	return entries, err
}

// FindTool locates the single provider (if any) exposing tool.
func (c *Client) FindTool(tool string) (provider string, found bool, err error) {
	var out struct {
		Provider string `json:"provider"`
	}
	callErr := c.call("search", map[string]string{"tool": tool}, &out)
	if callErr != nil {
		if ke, ok := perrors.As(callErr); ok && ke.Kind == perrors.NotLoaded {
			return "", false, nil
		}
		return "", false, callErr
	}
	if out.Provider == "" {
		return "", false, nil
	}
	return out.Provider, true, nil
}
