// clifgen - generate a Python extension-module C++ source from a resolved
// binding AST.
//
// The matcher resolves an interface definition against the C++ headers and
// writes the resolved AST as CBOR; clifgen turns that AST into the wrapper
// source. Configuration comes from the nearest clif.toml.
//
// Build: go build ./cmd/clifgen
// Usage:
//   clifgen                       # use clif.toml found from the cwd up
//   clifgen --dir path/to/project
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/omsandippatil/clif/ast"
	"github.com/omsandippatil/clif/gen"
	"github.com/omsandippatil/clif/manifest"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("clifgen")

func main() {
	dir := flag.String("dir", ".", "directory to search for clif.toml")
	verbose := flag.Int("v", 0, "log verbosity")
	flag.Parse()

	commonlog.Configure(*verbose, nil)

	if err := run(*dir); err != nil {
		log.Errorf("%v", err)
		fmt.Fprintf(os.Stderr, "clifgen: %v\n", err)
		os.Exit(1)
	}
}

func run(dir string) error {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("no clif.toml found from %s up", dir)
	}
	log.Infof("using manifest in %s", m.Dir)

	mod, err := ast.LoadModule(m.ASTPath())
	if err != nil {
		return err
	}
	if mod.PyName == "" {
		mod.PyName = m.Module.Name
	}
	if mod.Namespace == "" {
		mod.Namespace = m.Module.Namespace
	}
	mod.Headers = append(mod.Headers, m.Headers.Include...)
	mod.SysHeaders = append(mod.SysHeaders, m.Headers.System...)
	if len(m.PostConversions) > 0 {
		if mod.PostConversions == nil {
			mod.PostConversions = make(map[string]string)
		}
		for k, v := range m.PostConversions {
			mod.PostConversions[k] = v
		}
	}

	log.Infof("generating %s: %d classes, %d functions",
		mod.PyName, len(mod.Classes), len(mod.Functions))
	lines, err := gen.GenerateModule(mod)
	if err != nil {
		return err
	}

	out, err := os.Create(m.OutputPath())
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", m.OutputPath(), err)
	}
	defer out.Close()
	for _, s := range lines {
		if _, err := fmt.Fprintln(out, s); err != nil {
			return fmt.Errorf("write %s: %w", m.OutputPath(), err)
		}
	}
	log.Infof("wrote %s (%d lines)", m.OutputPath(), len(lines))
	return nil
}
