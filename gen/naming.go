package gen

import "strings"

// Naming conventions for generated C++ identifiers.

// cppIdent flattens a qualified C++ name into a valid identifier.
// e.g., "::ns::Base::Method" → "Method", "operator()" → "operator_call".
func cppIdent(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	switch name {
	case "operator()":
		return "operator_call"
	case "operator[]":
		return "operator_index"
	}
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// ClassNamespace returns the C++ namespace holding a class's generated
// wrapper, e.g. "Vector" → "pyVector".
func ClassNamespace(pyname string) string {
	return "py" + strings.ReplaceAll(pyname, ".", "_")
}

// WrapperName returns the generated function name for a Python-visible
// callable, e.g. "lookup" → "wrapLookup".
func WrapperName(pyname string) string {
	name := cppIdent(strings.TrimSuffix(pyname, "@"))
	name = strings.TrimLeft(name, "_")
	if name == "" {
		name = "special"
	}
	return "wrap" + strings.ToUpper(name[:1]) + name[1:]
}
