// Package hostapi is HostGateway: the local HTTP surface a CLI or other host
// process uses to drive the Supervisor and CatalogView without linking
// against them directly. One JSON-RPC-shaped dispatch endpoint plus a
// server-sent-events log tail, in the same idiom as the control server this
// module is adapted from.
package hostapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/brightloop/provisor/internal/catalog"
	perrors "github.com/brightloop/provisor/internal/errors"
	"github.com/brightloop/provisor/internal/logger"
	"github.com/brightloop/provisor/internal/supervisor"
)

// Gateway wires a Supervisor and CatalogView to an http.ServeMux.
type Gateway struct {
	mux *http.ServeMux
	sv  *supervisor.Supervisor
	cat *catalog.View
}

// New builds a Gateway and registers its routes.
func New(sv *supervisor.Supervisor, cat *catalog.View) *Gateway {
	g := &Gateway{mux: http.NewServeMux(), sv: sv, cat: cat}
	g.routes()
	return g
}

func (g *Gateway) routes() {
	g.mux.HandleFunc("POST /rpc", g.handleRPC)
	g.mux.HandleFunc("GET /logs/stream", g.handleLogStream)
}

// ServeHTTP makes Gateway an http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

// rpcRequest is the body of every POST /rpc call.
type rpcRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// rpcResponse is the uniform envelope every POST /rpc call returns.
type rpcResponse struct {
	Success bool                      `json:"success"`
	Result  any                       `json:"result,omitempty"`
	Error   *perrors.ClassifiedError  `json:"error,omitempty"`
}

func (g *Gateway) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, rpcResponse{Success: false, Error: &perrors.ClassifiedError{
			Kind: perrors.ProtocolError, Message: "malformed request body: " + err.Error(),
		}})
		return
	}

	result, err := g.dispatch(req.Method, req.Params)
	if err != nil {
		ce := perrors.Classify(err)
		logger.AddLog("WARN", fmt.Sprintf("[hostapi] %s failed: %s", req.Method, ce.Message))
		writeJSON(w, http.StatusOK, rpcResponse{Success: false, Error: &ce})
		return
	}
	writeJSON(w, http.StatusOK, rpcResponse{Success: true, Result: result})
}

func (g *Gateway) dispatch(method string, params json.RawMessage) (any, error) {
	switch method {
	case "load":
		var p struct {
			Name string `json:"name"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return g.sv.Load(p.Name)

	case "unload":
		var p struct {
			Name string `json:"name"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return nil, g.sv.Unload(p.Name)

	case "reload":
		var p struct {
			Name string `json:"name"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return g.sv.Reload(p.Name)

	case "refresh":
		var p struct {
			Name string `json:"name"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return g.sv.Refresh(p.Name)

	case "call":
		var p struct {
			Name      string         `json:"name"`
			Tool      string         `json:"tool"`
			Arguments map[string]any `json:"arguments"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return g.sv.Call(p.Name, p.Tool, p.Arguments)

	case "list_loaded":
		return g.sv.ListLoaded(), nil

	case "available":
		return g.sv.AvailableNames(), nil

	case "search":
		var p struct {
			Tool string `json:"tool"`
		}
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		if p.Tool == "" {
			return g.cat.ListAllTools(), nil
		}
		desc, provider, found := g.cat.FindTool(p.Tool)
		if !found {
			return nil, perrors.New(perrors.NotLoaded, fmt.Sprintf("no loaded provider exposes tool %q", p.Tool))
		}
		return map[string]any{"provider": provider, "tool": desc}, nil

	default:
		return nil, perrors.New(perrors.ProtocolError, fmt.Sprintf("unknown method %q", method))
	}
}

func (g *Gateway) handleLogStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := logger.Subscribe()
	defer logger.Unsubscribe(ch)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"ok\"}\n\n")
	flusher.Flush()

	for {
		select {
		case entry := <-ch:
			data, _ := json.Marshal(entry)
			fmt.Fprintf(w, "event: log\ndata: %s\n\n", data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func unmarshal(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return perrors.New(perrors.ProtocolError, "malformed params: "+err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
