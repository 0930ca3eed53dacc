// Package supervisor is the registry of named provider sessions: it
// serializes lifecycle operations (load/unload/reload/refresh) and routes
// tool calls to the right session, enforcing the two-lock concurrency model
// that keeps one slow tool call from blocking every other provider's loads.
package supervisor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/brightloop/provisor/internal/config"
	perrors "github.com/brightloop/provisor/internal/errors"
	"github.com/brightloop/provisor/internal/logger"
	"github.com/brightloop/provisor/internal/session"
	"github.com/brightloop/provisor/internal/settings"
)

// LoadResult is returned by Load and by an inline auto-load inside Call.
type LoadResult struct {
	Tools []string
}

// LoadedInfo is one entry of ListLoaded's snapshot.
type LoadedInfo struct {
	Name      string
	Alive     bool
	Tools     []string
	ToolCount int
}

// entry pairs a session with a generation counter, so Call can tell whether
// the registry still holds the exact instance it looked up before evicting
// it on a terminal error (a concurrent unload/reload may have already
// replaced it with a newer session of the same name).
type entry struct {
	sess       *session.Session
	generation uint64
}

// Supervisor is the registry of live provider sessions, keyed by name.
type Supervisor struct {
	ctx      context.Context
	cfg      *config.View
	settings settings.Settings

	// mu is the registry lock: reentrant only in the sense that every
	// method takes and releases it itself (Go's sync.Mutex is not truly
	// reentrant, so no method calls another while holding it). It guards
	// insertion/removal of sessions and is never held across a session's
	// blocking I/O.
	mu      sync.Mutex
	entries map[string]*entry
	nextGen uint64
}

// New constructs a Supervisor over cfg using settings for deadlines and
// behavior flags.
func New(ctx context.Context, cfg *config.View, s settings.Settings) *Supervisor {
	return &Supervisor{
		ctx:      ctx,
		cfg:      cfg,
		settings: s,
		entries:  make(map[string]*entry),
	}
}

// Load spawns, handshakes, and discovers a provider by name. It is
// idempotent: if a Ready session already exists, its tool list is returned
// without touching the child.
func (sv *Supervisor) Load(name string) (LoadResult, error) {
	sv.mu.Lock()
	var stale *session.Session
	if e, ok := sv.entries[name]; ok {
		if e.sess.State() == session.Ready {
			tools := toolNames(e.sess.Catalog())
			sv.mu.Unlock()
			return LoadResult{Tools: tools}, nil
		}
		// Entry exists but its session has died on its own (child exited
		// without Unload/Terminate ever being called). It will be replaced
		// below; terminate it first so its pipes are closed explicitly
		// rather than left for the dead child's already-reaped process.
		stale = e.sess
	}
	decl, ok := sv.cfg.Lookup(name)
	if !ok {
		sv.mu.Unlock()
		return LoadResult{}, perrors.New(perrors.NotConfigured, fmt.Sprintf("provider %q is not configured", name))
	}
	sv.nextGen++
	gen := sv.nextGen
	sv.mu.Unlock()

	if stale != nil {
		stale.Terminate(sv.settings.TerminateGrace)
	}

	// Spawn, handshake, and discover happen outside the registry lock:
	// these are the blocking points (§5), and must never stall other
	// providers' lifecycle operations.
	sess := session.New(sv.ctx, decl, sv.settings.InitializedSettle)
	if err := sess.Spawn(sv.settings.SpawnGrace); err != nil {
		return LoadResult{}, err
	}
	if err := sess.Handshake(sv.settings.HandshakeTimeout); err != nil {
		sess.Terminate(sv.settings.TerminateGrace)
		return LoadResult{}, err
	}
	if err := sess.Discover(sv.settings.DiscoverTimeout); err != nil {
		sess.Terminate(sv.settings.TerminateGrace)
		return LoadResult{}, err
	}

	sv.mu.Lock()
	sv.entries[name] = &entry{sess: sess, generation: gen}
	sv.mu.Unlock()

	logger.AddLog("INFO", fmt.Sprintf("[supervisor] loaded %s", name))
	return LoadResult{Tools: toolNames(sess.Catalog())}, nil
}

// Call routes a tool invocation to name's session, auto-loading it first
// when Settings.AutoLoadOnCall is set and no session exists yet.
func (sv *Supervisor) Call(name, tool string, arguments map[string]any) (any, error) {
	sv.mu.Lock()
	e, ok := sv.entries[name]
	sv.mu.Unlock()

	if !ok {
		if !sv.settings.AutoLoadOnCall {
			return nil, perrors.New(perrors.NotLoaded, fmt.Sprintf("provider %q is not loaded", name))
		}
		if _, err := sv.Load(name); err != nil {
			return nil, err
		}
		sv.mu.Lock()
		e, ok = sv.entries[name]
		sv.mu.Unlock()
		if !ok {
			return nil, perrors.New(perrors.NotLoaded, fmt.Sprintf("provider %q failed to load", name))
		}
	}

	// The registry lock is released before this blocking call so a slow
	// tool call on one provider cannot block loads of any other.
	result, err := e.sess.Call(tool, arguments, sv.settings.CallTimeout)
	if err != nil {
		if ke, isKind := perrors.As(err); isKind && (ke.Kind == perrors.Timeout || ke.Kind == perrors.RemoteError) {
			// Timeout and RemoteError leave the session intact.
			return nil, err
		}
		sv.evictIfSame(name, e)
		return nil, err
	}
	return result, nil
}

// evictIfSame removes name from the registry only if it still maps to the
// exact entry e observed earlier — a generation check guarding against a
// concurrent unload/reload having already replaced it.
func (sv *Supervisor) evictIfSame(name string, e *entry) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if cur, ok := sv.entries[name]; ok && cur.generation == e.generation {
		delete(sv.entries, name)
	}
}

// Unload terminates and removes name's session. The child is terminated
// outside the registry lock so other providers' loads are not blocked while
// this one shuts down.
func (sv *Supervisor) Unload(name string) error {
	sv.mu.Lock()
	e, ok := sv.entries[name]
	if ok {
		delete(sv.entries, name)
	}
	sv.mu.Unlock()

	if !ok {
		return perrors.New(perrors.NotLoaded, fmt.Sprintf("provider %q is not loaded", name))
	}
	e.sess.Terminate(sv.settings.TerminateGrace)
	logger.AddLog("INFO", fmt.Sprintf("[supervisor] unloaded %s", name))
	return nil
}

// Reload is unload-if-loaded then load; the registry lock inside each step
// serializes it against any concurrent lifecycle operation on the same
// name.
func (sv *Supervisor) Reload(name string) (LoadResult, error) {
	if err := sv.Unload(name); err != nil {
		if ke, ok := perrors.As(err); !ok || ke.Kind != perrors.NotLoaded {
			return LoadResult{}, err
		}
	}
	return sv.Load(name)
}

// Refresh re-runs discovery on an already-loaded session and returns its new
// tool list.
func (sv *Supervisor) Refresh(name string) (LoadResult, error) {
	sv.mu.Lock()
	e, ok := sv.entries[name]
	sv.mu.Unlock()
	if !ok {
		return LoadResult{}, perrors.New(perrors.NotLoaded, fmt.Sprintf("provider %q is not loaded", name))
	}
	if err := e.sess.Refresh(sv.settings.DiscoverTimeout); err != nil {
		sv.evictIfSame(name, e)
		return LoadResult{}, err
	}
	return LoadResult{Tools: toolNames(e.sess.Catalog())}, nil
}

// ListLoaded is a point-in-time snapshot of every session in the registry,
// live or not. A dead session lingers here until its next observation (via
// Call or Unload) removes it, per the lifecycle rules in §3 of the core
// specification this implements.
func (sv *Supervisor) ListLoaded() []LoadedInfo {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	out := make([]LoadedInfo, 0, len(sv.entries))
	for name, e := range sv.entries {
		tools := toolNames(e.sess.Catalog())
		out = append(out, LoadedInfo{
			Name:      name,
			Alive:     e.sess.Alive(),
			Tools:     tools,
			ToolCount: len(tools),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AvailableNames delegates to the configuration view.
func (sv *Supervisor) AvailableNames() []string {
	return sv.cfg.Names()
}

// Sessions exposes the live sessions for CatalogView, which is a pure
// projection over the Supervisor and must always see the current registry.
func (sv *Supervisor) Sessions() map[string]*session.Session {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	out := make(map[string]*session.Session, len(sv.entries))
	for name, e := range sv.entries {
		out[name] = e.sess
	}
	return out
}

// Shutdown terminates every session and clears the registry. Idempotent.
func (sv *Supervisor) Shutdown() {
	sv.mu.Lock()
	entries := sv.entries
	sv.entries = make(map[string]*entry)
	sv.mu.Unlock()

	var wg sync.WaitGroup
	for name, e := range entries {
		wg.Add(1)
		go func(name string, e *entry) {
			defer wg.Done()
			e.sess.Terminate(sv.settings.TerminateGrace)
			logger.AddLog("INFO", fmt.Sprintf("[supervisor] shutdown terminated %s", name))
		}(name, e)
	}
	wg.Wait()
}

func toolNames(catalog map[string]session.ToolDescriptor) []string {
	names := make([]string, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
