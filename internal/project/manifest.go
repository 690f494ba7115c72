// Package project reads rill.toml, the build manifest naming the
// package and its ABI targets.
package project

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"rill/internal/layout"
)

// DefaultFile is the manifest name looked up in the working directory.
const DefaultFile = "rill.toml"

// Manifest is the parsed rill.toml.
type Manifest struct {
	Package Package           `toml:"package"`
	Targets map[string]Target `toml:"target"`
}

// Package names the compilation unit set.
type Package struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Target is one named ABI target table, e.g. [target.x86_64].
type Target struct {
	Triple   string `toml:"triple"`
	PtrSize  int    `toml:"ptr_size"`
	PtrAlign int    `toml:"ptr_align"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Package.Name == "" {
		return nil, fmt.Errorf("manifest: package.name is required")
	}
	for name, t := range m.Targets {
		if t.PtrSize <= 0 || t.PtrAlign <= 0 {
			return nil, fmt.Errorf("manifest: target %s needs positive ptr_size and ptr_align", name)
		}
	}
	return &m, nil
}

// LayoutTarget returns the layout target for a named table; an empty
// name or an absent table falls back to the default x86-64 target.
func (m *Manifest) LayoutTarget(name string) (layout.Target, error) {
	if name == "" {
		return layout.X86_64LinuxGNU(), nil
	}
	t, ok := m.Targets[name]
	if !ok {
		return layout.Target{}, fmt.Errorf("manifest: no target table %q", name)
	}
	return layout.Target{Triple: t.Triple, PtrSize: t.PtrSize, PtrAlign: t.PtrAlign}, nil
}
