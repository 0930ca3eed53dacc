// Package catalog is CatalogView: a read-only, stateless aggregation over
// every Ready session in a Supervisor. It holds no state of its own and
// rereads the Supervisor on every call, so an unload or reload can never
// leave a stale entry visible.
package catalog

import (
	"sort"

	"github.com/brightloop/provisor/internal/session"
	"github.com/brightloop/provisor/internal/supervisor"
)

// ToolEntry is one tool exposed by one provider.
type ToolEntry struct {
	ToolName     string
	ProviderName string
	Description  string
}

// View projects a Supervisor's live sessions into a searchable tool
// catalog.
type View struct {
	sv *supervisor.Supervisor
}

// New wraps sv.
func New(sv *supervisor.Supervisor) *View {
	return &View{sv: sv}
}

// ListAllTools returns every tool of every Ready session, sorted by tool
// name.
func (v *View) ListAllTools() []ToolEntry {
	var out []ToolEntry
	for name, sess := range v.sv.Sessions() {
		if sess.State() != session.Ready {
			continue
		}
		for toolName, desc := range sess.Catalog() {
			out = append(out, ToolEntry{
				ToolName:     toolName,
				ProviderName: name,
				Description:  desc.Description,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ToolName != out[j].ToolName {
			return out[i].ToolName < out[j].ToolName
		}
		return out[i].ProviderName < out[j].ProviderName
	})
	return out
}

// FindTool returns the descriptor of the first Ready session owning
// toolName, and its provider name. When two providers expose a tool of the
// same name, the tie is broken by provider name in lexicographic order —
// documented here, not left implicit.
func (v *View) FindTool(toolName string) (session.ToolDescriptor, string, bool) {
	var (
		best     session.ToolDescriptor
		bestProv string
		found    bool
	)
	for name, sess := range v.sv.Sessions() {
		if sess.State() != session.Ready {
			continue
		}
		desc, ok := sess.Catalog()[toolName]
		if !ok {
			continue
		}
		if !found || name < bestProv {
			best, bestProv, found = desc, name, true
		}
	}
	return best, bestProv, found
}

// Providers returns the names of currently Ready sessions.
func (v *View) Providers() []string {
	var out []string
	for name, sess := range v.sv.Sessions() {
		if sess.State() == session.Ready {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
