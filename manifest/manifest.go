// Package manifest handles clif.toml generator configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest represents a clif.toml generator configuration.
type Manifest struct {
	Module  Module  `toml:"module"`
	Source  Source  `toml:"source"`
	Headers Headers `toml:"headers"`

	// PostConversions maps a Python type name to the C++ converter
	// applied to results of that type.
	PostConversions map[string]string `toml:"postconv"`

	// Dir is the directory containing the clif.toml file (set at load
	// time).
	Dir string `toml:"-"`
}

// Module contains the generated-module metadata.
type Module struct {
	// Name is the fully qualified Python module name.
	Name string `toml:"name"`
	// Namespace is the C++ namespace for the generated code. Defaults
	// to the module name with dots replaced by underscores.
	Namespace string `toml:"namespace"`
}

// Source configures input and output locations.
type Source struct {
	// AST is the resolved-AST file written by the matcher.
	AST string `toml:"ast"`
	// Output is the generated C++ source file.
	Output string `toml:"output"`
}

// Headers configures extra includes for the generated source.
type Headers struct {
	Include []string `toml:"include"`
	System  []string `toml:"system"`
}

// Load parses a clif.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "clif.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Module.Namespace == "" && m.Module.Name != "" {
		m.Module.Namespace = strings.ReplaceAll(m.Module.Name, ".", "_") + "_clifwrap"
	}
	if m.Source.Output == "" && m.Source.AST != "" {
		m.Source.Output = strings.TrimSuffix(m.Source.AST, filepath.Ext(m.Source.AST)) + ".cc"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a clif.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "clif.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// ASTPath returns the absolute path of the resolved-AST input file.
func (m *Manifest) ASTPath() string {
	return filepath.Join(m.Dir, m.Source.AST)
}

// OutputPath returns the absolute path of the generated source file.
func (m *Manifest) OutputPath() string {
	return filepath.Join(m.Dir, m.Source.Output)
}
