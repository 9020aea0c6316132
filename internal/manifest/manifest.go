// Package manifest reads Refssa.toml package manifests.
//
// A package manifest names the program it builds:
//
//	[package]
//	name = "slices"
//	type = "bin"
//	authors = ["kev"]
//	compiler_version = "0.1"
//	entry = "main"
//	args = ["5", "10"]
//
//	[dependencies]
//	rand = { git = "https://github.com/noir-lang/rand", tag = "v0.1" }
//	util = { path = "../util" }
//
// A workspace manifest lists member directories instead:
//
//	[workspace]
//	members = ["references", "slices"]
//	default-member = "slices"
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/funvibe/refssa/internal/config"
	"github.com/funvibe/refssa/internal/diagnostics"
	"github.com/funvibe/refssa/internal/token"
)

// Package types.
const (
	TypeBin = "bin"
	TypeLib = "lib"
)

// Manifest is either a package or a workspace manifest.
type Manifest struct {
	Package      *Package              `toml:"package"`
	Dependencies map[string]Dependency `toml:"dependencies"`
	Workspace    *Workspace            `toml:"workspace"`

	// Dir is the directory the manifest was loaded from.
	Dir string `toml:"-"`
}

type Package struct {
	Name            string   `toml:"name"`
	Type            string   `toml:"type"`
	Authors         []string `toml:"authors"`
	CompilerVersion string   `toml:"compiler_version"`
	License         string   `toml:"license"`

	// Program is the fixture program the package builds; defaults to Name.
	Program string `toml:"program"`
	// Entry is the function `run` starts from.
	Entry string `toml:"entry"`
	// Args are the entry arguments in the textual value syntax.
	Args []string `toml:"args"`
}

// Dependency is either a git checkout at a tag or a local path.
type Dependency struct {
	Git  string `toml:"git"`
	Tag  string `toml:"tag"`
	Path string `toml:"path"`
}

// IsLocal reports whether d is a path dependency.
func (d Dependency) IsLocal() bool {
	return d.Path != ""
}

type Workspace struct {
	Members       []string `toml:"members"`
	DefaultMember string   `toml:"default-member"`
}

// Load reads the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return Parse(data, path)
}

// LoadDir reads the manifest of the package or workspace in dir.
func LoadDir(dir string) (*Manifest, error) {
	return Load(filepath.Join(dir, config.ManifestFileName))
}

// Parse parses manifest content. path is used for error messages and to
// anchor member and dependency paths.
func Parse(data []byte, path string) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, manifestError(path, "%v", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, manifestError(path, "unknown keys: %s", strings.Join(keys, ", "))
	}
	m.Dir = filepath.Dir(path)
	if err := m.validate(path); err != nil {
		return nil, err
	}
	m.setDefaults()
	return &m, nil
}

func manifestError(path, format string, args ...interface{}) error {
	return diagnostics.NewError(diagnostics.Config, token.Token{File: path}, format, args...)
}

func (m *Manifest) validate(path string) error {
	switch {
	case m.Package == nil && m.Workspace == nil:
		return manifestError(path, "expected a [package] or a [workspace] section")
	case m.Package != nil && m.Workspace != nil:
		return manifestError(path, "a manifest cannot declare both [package] and [workspace]")
	}

	if ws := m.Workspace; ws != nil {
		if len(m.Dependencies) > 0 {
			return manifestError(path, "a workspace manifest cannot declare dependencies")
		}
		if len(ws.Members) == 0 {
			return manifestError(path, "workspace has no members")
		}
		if ws.DefaultMember != "" && !contains(ws.Members, ws.DefaultMember) {
			return manifestError(path, "default-member %q is not a member", ws.DefaultMember)
		}
		return nil
	}

	switch m.Package.Type {
	case "", TypeBin, TypeLib:
	default:
		return manifestError(path, "package type must be %s or %s, got %q", TypeBin, TypeLib, m.Package.Type)
	}
	if m.Package.Name == "" && m.Package.Program == "" {
		return manifestError(path, "package needs a name or a program")
	}
	for _, name := range m.DependencyNames() {
		d := m.Dependencies[name]
		switch {
		case d.Path != "" && (d.Git != "" || d.Tag != ""):
			return manifestError(path, "dependency %s: path and git are exclusive", name)
		case d.Path == "" && (d.Git == "" || d.Tag == ""):
			return manifestError(path, "dependency %s: expected { path } or { git, tag }", name)
		}
	}
	return nil
}

func (m *Manifest) setDefaults() {
	if m.Package == nil {
		return
	}
	if m.Package.Type == "" {
		m.Package.Type = TypeBin
	}
	if m.Package.Program == "" {
		m.Package.Program = m.Package.Name
	}
	if m.Package.Name == "" {
		m.Package.Name = m.Package.Program
	}
	if m.Package.Entry == "" {
		m.Package.Entry = config.EntryFuncName
	}
}

// IsWorkspace reports whether m lists members instead of a package.
func (m *Manifest) IsWorkspace() bool {
	return m.Workspace != nil
}

// HasLocalDependency reports whether any dependency is a local path.
func (m *Manifest) HasLocalDependency() bool {
	for _, d := range m.Dependencies {
		if d.IsLocal() {
			return true
		}
	}
	return false
}

// DependencyNames returns the dependency names in sorted order.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MemberDirs returns the absolute directories of the workspace members,
// in declaration order.
func (m *Manifest) MemberDirs() []string {
	if m.Workspace == nil {
		return nil
	}
	dirs := make([]string, len(m.Workspace.Members))
	for i, member := range m.Workspace.Members {
		dirs[i] = filepath.Join(m.Dir, member)
	}
	return dirs
}

// TargetDir is where build output for this package goes.
func (m *Manifest) TargetDir() string {
	return filepath.Join(m.Dir, config.DefaultTargetDir)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
