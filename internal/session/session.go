// Package session implements ProviderSession: one live child tool-provider
// process — its pipes, protocol state, monotonic request-id counter, and
// discovered tool catalog.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brightloop/provisor/internal/config"
	perrors "github.com/brightloop/provisor/internal/errors"
	"github.com/brightloop/provisor/internal/logger"
	"github.com/brightloop/provisor/internal/protocol"
)

// State is a session's position in its lifecycle. States advance
// monotonically Spawned -> Initialized -> Ready -> Dead; Dead is terminal.
type State int32

const (
	Spawned State = iota
	Initialized
	Ready
	Dead
)

func (s State) String() string {
	switch s {
	case Spawned:
		return "spawned"
	case Initialized:
		return "initialized"
	case Ready:
		return "ready"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// ToolDescriptor is one tool a provider exposes.
type ToolDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"inputSchema,omitempty"`
}

const protocolVersion = "2025-03-26"

// Session is one live child provider process.
type Session struct {
	Name string
	Decl config.ProviderDecl

	ctx context.Context
	cmd *exec.Cmd

	stdin  io.WriteCloser
	stdout *os.File
	codec  *protocol.Codec

	state   atomic.Int32
	exited  atomic.Bool // set once the child's Wait() returns
	nextID  int64       // next id to hand out; starts at 3 (1, 2 reserved)
	catalog atomic.Pointer[map[string]ToolDescriptor]

	settle time.Duration // pause after notifications/initialized

	// ioMu serializes every request/response exchange on this session: a
	// child has one stdin and one stdout, so concurrent writers would
	// interleave frames and concurrent readers would race for responses.
	ioMu sync.Mutex

	// pending is a read left in flight by a timed-out readWithTimeout; the
	// next read waits on it instead of starting a second DecodeLine.
	pending chan readResult
}

// New constructs a session for decl. It does not spawn the child; call
// Spawn, then Handshake, then Discover to bring it to Ready. settle is the
// pause observed after notifications/initialized before tools/list, taken
// from settings so it is configurable rather than hardcoded per session.
func New(ctx context.Context, decl config.ProviderDecl, settle time.Duration) *Session {
	s := &Session{
		Name:   decl.Name,
		Decl:   decl,
		ctx:    ctx,
		nextID: 3,
		settle: settle,
	}
	empty := map[string]ToolDescriptor{}
	s.catalog.Store(&empty)
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Pid returns the child process id, or 0 if never spawned.
func (s *Session) Pid() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Catalog returns the tool catalog discovered for this session.
func (s *Session) Catalog() map[string]ToolDescriptor {
	return *s.catalog.Load()
}

// Alive reports whether the child process is still running.
func (s *Session) Alive() bool {
	return s.cmd != nil && s.cmd.Process != nil && !s.exited.Load()
}

// Spawn launches the child with piped stdin/stdout; stderr is discarded so a
// full stderr pipe can never block the child. After launch it waits grace
// for an early exit; if the process has already died, it returns a
// SpawnError carrying the exit status.
func (s *Session) Spawn(grace time.Duration) error {
	cmd := exec.CommandContext(s.ctx, s.Decl.Command, s.Decl.Args...)
	cmd.Env = os.Environ()
	for k, v := range s.Decl.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return perrors.New(perrors.SpawnError, fmt.Sprintf("stdin pipe: %v", err))
	}
	// The stdout pipe is made here rather than by StdoutPipe, whose read end
	// Wait closes as soon as the child exits, dropping any reply not yet read.
	stdout, stdoutW, err := os.Pipe()
	if err != nil {
		return perrors.New(perrors.SpawnError, fmt.Sprintf("stdout pipe: %v", err))
	}
	cmd.Stdout = stdoutW
	// stderr is routed to the null device: child log output is intentionally
	// dropped, both to match the proxy's own behavior and so a full stderr
	// pipe can never block the child.
	if devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0); err == nil {
		cmd.Stderr = devNull
	}

	if err := cmd.Start(); err != nil {
		stdout.Close()
		stdoutW.Close()
		return perrors.New(perrors.SpawnError, fmt.Sprintf("exec %s: %v", s.Decl.Command, err))
	}
	stdoutW.Close()

	s.cmd = cmd
	s.stdin = stdin
	s.stdout = stdout
	s.codec = protocol.NewCodec(stdin, stdout)

	go func() {
		s.cmd.Wait()
		s.exited.Store(true)
	}()

	time.Sleep(grace)
	if !s.Alive() {
		exitErr := "exited during spawn grace window"
		if s.cmd.ProcessState != nil {
			exitErr = s.cmd.ProcessState.String()
		}
		return perrors.New(perrors.SpawnError, fmt.Sprintf("%s: %s", s.Decl.Command, exitErr))
	}

	logger.AddLog("INFO", fmt.Sprintf("[%s] spawned pid=%d", s.Name, s.Pid()))
	return nil
}

// Handshake performs the initialize / initialized exchange. On failure the
// session transitions to Dead.
func (s *Session) Handshake(timeout time.Duration) error {
	req, _ := protocol.NewRequest(1, "initialize", map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
			"prompts":   map[string]any{},
		},
		"clientInfo": map[string]string{
			"name":    "provisor",
			"version": "1.0.0",
		},
	})

	resp, err := s.roundTrip(req, timeout)
	if err != nil {
		s.setState(Dead)
		return perrors.New(perrors.HandshakeError, fmt.Sprintf("initialize: %v", err))
	}
	if resp.Error != nil {
		s.setState(Dead)
		return perrors.New(perrors.HandshakeError, fmt.Sprintf("initialize: %s (code %d)", resp.Error.Message, resp.Error.Code))
	}

	// notifications/initialized is fire-and-forget: no response is read.
	notif, _ := protocol.NewNotification("notifications/initialized", nil)
	if err := s.codec.Encode(notif); err != nil {
		s.setState(Dead)
		return perrors.New(perrors.HandshakeError, fmt.Sprintf("initialized notification: %v", err))
	}

	time.Sleep(s.settle)
	s.setState(Initialized)
	return nil
}

// Discover sends tools/list and, on success, replaces the catalog atomically
// and advances the session to Ready.
func (s *Session) Discover(timeout time.Duration) error {
	req, _ := protocol.NewRequest(2, "tools/list", nil)
	resp, err := s.roundTrip(req, timeout)
	if err != nil {
		s.setState(Dead)
		return perrors.New(perrors.DiscoveryError, fmt.Sprintf("tools/list: %v", err))
	}
	if resp.Error != nil {
		s.setState(Dead)
		return perrors.New(perrors.DiscoveryError, fmt.Sprintf("tools/list: %s", resp.Error.Message))
	}

	catalog, err := parseCatalog(resp.Result)
	if err != nil {
		s.setState(Dead)
		return perrors.New(perrors.DiscoveryError, fmt.Sprintf("tools/list result: %v", err))
	}

	s.catalog.Store(&catalog)
	s.setState(Ready)
	return nil
}

// Refresh re-runs discovery against an already-Ready session, replacing the
// catalog atomically without disturbing the state machine. Like Call, it
// holds ioMu for the exchange and skips one stale response.
func (s *Session) Refresh(timeout time.Duration) error {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	if s.State() != Ready {
		return perrors.New(perrors.ProviderDead, "refresh on a session that is not ready")
	}
	id := s.allocID()
	req, _ := protocol.NewRequest(id, "tools/list", nil)
	if err := s.codec.Encode(req); err != nil {
		s.setState(Dead)
		return perrors.New(perrors.DiscoveryError, fmt.Sprintf("tools/list: %v", err))
	}
	resp, err := s.readMatchingResponse(id, timeout)
	if err != nil {
		s.setState(Dead)
		return perrors.New(perrors.DiscoveryError, fmt.Sprintf("tools/list: %v", err))
	}
	if resp.Error != nil {
		return perrors.New(perrors.DiscoveryError, fmt.Sprintf("tools/list: %s", resp.Error.Message))
	}
	catalog, err := parseCatalog(resp.Result)
	if err != nil {
		return perrors.New(perrors.DiscoveryError, fmt.Sprintf("tools/list result: %v", err))
	}
	s.catalog.Store(&catalog)
	return nil
}

// Call invokes a tool and returns its unwrapped result. It acquires ioMu for
// the duration of the exchange, including the bounded wait on stdout.
func (s *Session) Call(toolName string, arguments map[string]any, deadline time.Duration) (any, error) {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	if s.State() != Ready || !s.Alive() {
		s.setState(Dead)
		return nil, perrors.New(perrors.ProviderDead, fmt.Sprintf("session %s is not ready", s.Name))
	}

	if arguments == nil {
		arguments = map[string]any{}
	}

	id := s.allocID()
	req, _ := protocol.NewRequest(id, "tools/call", map[string]any{
		"name":      toolName,
		"arguments": arguments,
	})

	if err := s.codec.Encode(req); err != nil {
		s.setState(Dead)
		return nil, perrors.New(perrors.ProviderDead, fmt.Sprintf("write request: %v", err))
	}

	resp, err := s.readMatchingResponse(id, deadline)
	if err != nil {
		if ke, ok := perrors.As(err); ok && ke.Kind == perrors.Timeout {
			// A single timeout does not by itself tear the session down;
			// the stray response, if it ever arrives, is skipped by the
			// next call's readMatchingResponse.
			return nil, err
		}
		s.setState(Dead)
		return nil, err
	}

	if resp.Error != nil {
		return nil, perrors.New(perrors.RemoteError, resp.Error.Message)
	}
	return unwrapResult(resp.Result), nil
}

// readMatchingResponse reads one response within deadline. If its id does
// not match want, it is treated as a late arrival from a previous timed-out
// call and discarded; at most one extra read is attempted within the same
// deadline budget before giving up with ProtocolError (Call then marks the
// session Dead).
func (s *Session) readMatchingResponse(want int64, deadline time.Duration) (*protocol.Response, error) {
	start := time.Now()
	for attempt := 0; attempt < 2; attempt++ {
		remaining := deadline - time.Since(start)
		if remaining < 0 {
			remaining = 0
		}
		resp, err := s.readWithTimeout(remaining)
		if err != nil {
			return nil, err
		}
		if idsEqual(resp.ID, want) {
			return resp, nil
		}
		logger.AddLog("WARN", fmt.Sprintf("[%s] discarding stale response id=%v, want=%d", s.Name, resp.ID, want))
	}
	return nil, perrors.New(perrors.ProtocolError, "response id mismatch persisted across retries")
}

func idsEqual(id any, want int64) bool {
	switch v := id.(type) {
	case float64:
		return int64(v) == want
	case int64:
		return v == want
	case int:
		return int64(v) == want
	default:
		return false
	}
}

// roundTrip writes req and reads exactly one response within timeout,
// without the staleness retry Call uses (handshake/discover have no prior
// outstanding calls that could leave a stray response behind).
func (s *Session) roundTrip(req protocol.Request, timeout time.Duration) (*protocol.Response, error) {
	if err := s.codec.Encode(req); err != nil {
		return nil, err
	}
	return s.readWithTimeout(timeout)
}

type readResult struct {
	resp *protocol.Response
	err  error
}

// readWithTimeout reads one frame within timeout. bufio.Reader has no
// cancellable read, so the read runs in a goroutine and the result is raced
// against time.After. A read still in flight at the deadline is kept in
// s.pending and the next call waits on it instead of starting a second
// reader, so only one DecodeLine ever runs on the codec and a late frame is
// handed to the next read rather than lost.
func (s *Session) readWithTimeout(timeout time.Duration) (*protocol.Response, error) {
	ch := s.pending
	s.pending = nil
	if ch == nil {
		ch = make(chan readResult, 1)
		go func() {
			resp, err := s.codec.DecodeLine()
			ch <- readResult{resp, err}
		}()
	}

	select {
	case r := <-ch:
		if r.err != nil {
			if r.err == protocol.ErrMalformedFrame {
				return nil, perrors.New(perrors.ProtocolError, r.err.Error())
			}
			// EOF (and any other pipe error) means the child is gone.
			return nil, perrors.New(perrors.ProviderDead, r.err.Error())
		}
		return r.resp, nil
	case <-time.After(timeout):
		s.pending = ch
		return nil, perrors.New(perrors.Timeout, fmt.Sprintf("no response within %v", timeout))
	case <-s.ctx.Done():
		s.pending = ch
		return nil, perrors.New(perrors.ProviderDead, s.ctx.Err().Error())
	}
}

// allocID returns the next strictly monotonic request id for this session.
func (s *Session) allocID() int64 {
	return atomic.AddInt64(&s.nextID, 1) - 1
}

// Terminate requests a polite exit, waits up to grace, then force-kills. It
// always ends with the session Dead and its pipes closed.
func (s *Session) Terminate(grace time.Duration) error {
	s.setState(Dead)

	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.stdout != nil {
		s.stdout.Close()
	}
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	if s.exited.Load() {
		return nil
	}

	s.cmd.Process.Signal(os.Interrupt)

	deadline := time.NewTimer(grace)
	defer deadline.Stop()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if s.exited.Load() {
				return nil
			}
		case <-deadline.C:
			s.cmd.Process.Kill()
			return nil
		}
	}
}

func parseCatalog(result any) (map[string]ToolDescriptor, error) {
	m, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("result is not an object")
	}
	rawTools, ok := m["tools"].([]any)
	if !ok {
		return nil, fmt.Errorf("result.tools is not an array")
	}

	catalog := make(map[string]ToolDescriptor, len(rawTools))
	for _, rt := range rawTools {
		tm, ok := rt.(map[string]any)
		if !ok {
			continue
		}
		name, _ := tm["name"].(string)
		if name == "" {
			continue
		}
		desc, _ := tm["description"].(string)
		catalog[name] = ToolDescriptor{
			Name:        name,
			Description: desc,
			InputSchema: tm["inputSchema"],
		}
	}
	return catalog, nil
}

// unwrapResult implements the tools/call content-unwrapping convention:
// result.content[0].text, parsed as JSON if possible, else returned as a
// plain string; if result has no content, the raw result is returned.
func unwrapResult(result any) any {
	m, ok := result.(map[string]any)
	if !ok {
		return result
	}
	content, ok := m["content"].([]any)
	if !ok || len(content) == 0 {
		return result
	}
	first, ok := content[0].(map[string]any)
	if !ok {
		return result
	}
	text, ok := first["text"].(string)
	if !ok {
		return result
	}
	var parsed any
	if json.Unmarshal([]byte(text), &parsed) == nil {
		return parsed
	}
	return text
}
