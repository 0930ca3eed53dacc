// Package config provides a read-only view over the provider declarations
// that drive the supervisor: a name -> {command, args, env} mapping read
// once from a JSON or YAML document.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProviderDecl is the declaration of one provider: what to exec and how.
type ProviderDecl struct {
	Name    string            `json:"name" yaml:"name"`
	Command string            `json:"command" yaml:"command"`
	Args    []string          `json:"args" yaml:"args"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

type rawDecl struct {
	Command string            `json:"command" yaml:"command"`
	Args    []string          `json:"args" yaml:"args"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

type rawDocument struct {
	MCPServers map[string]rawDecl `json:"mcpServers" yaml:"mcpServers"`
}

// View is an immutable snapshot of every provider declaration found in a
// configuration document. The core never writes through it.
type View struct {
	decls map[string]ProviderDecl
}

// Load reads and parses the document at path. A ".yaml"/".yml" extension is
// decoded as YAML; anything else is decoded as JSON. A missing file yields
// an empty View rather than an error, matching a freshly installed proxy
// with no providers configured yet.
func Load(path string) (*View, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &View{decls: map[string]ProviderDecl{}}, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes raw document bytes. ext selects the decoder the same way
// Load does; pass a path (or just ".yaml"/".json") for ext.
func Parse(data []byte, ext string) (*View, error) {
	var doc rawDocument
	var err error
	if isYAML(ext) {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	decls := make(map[string]ProviderDecl, len(doc.MCPServers))
	for name, raw := range doc.MCPServers {
		if name == "" || raw.Command == "" {
			continue
		}
		decls[name] = ProviderDecl{
			Name:    name,
			Command: raw.Command,
			Args:    raw.Args,
			Env:     raw.Env,
		}
	}
	return &View{decls: decls}, nil
}

func isYAML(ext string) bool {
	e := strings.ToLower(filepath.Ext(ext))
	if e == "" {
		e = strings.ToLower(ext)
	}
	return e == ".yaml" || e == ".yml" || e == "yaml" || e == "yml"
}

// Lookup returns the declaration for name, or false if no such provider is
// configured.
func (v *View) Lookup(name string) (ProviderDecl, bool) {
	d, ok := v.decls[name]
	return d, ok
}

// Names returns every configured provider name. Order is unspecified; callers
// that need a stable order should sort.
func (v *View) Names() []string {
	names := make([]string, 0, len(v.decls))
	for n := range v.decls {
		names = append(names, n)
	}
	return names
}
