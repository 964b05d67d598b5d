package gen

import (
	"fmt"

	"github.com/omsandippatil/clif/ast"
)

// ---------------------------------------------------------------------------
// Type Registration Planner: emit Ready() in base-before-derived order
// ---------------------------------------------------------------------------

// Planner sequences type registration for one generated module. The cache
// of already-imported foreign bases lives here, so repeated planning passes
// never observe each other's state.
type Planner struct {
	// pybases records foreign bases already imported and validated in
	// the emitted Ready() body, keyed by qualified name.
	pybases map[string]bool
	// lastPyBase is the qualified name held by base_cls right now.
	lastPyBase string
}

// NewPlanner creates a planner with an empty foreign-base cache.
func NewPlanner() *Planner {
	return &Planner{pybases: make(map[string]bool)}
}

// SortTypeInits returns types reordered so every same-module base precedes
// its derived class. A wrapped base missing from the batch is a generation
// error: the interface definition lacks an import for it.
func SortTypeInits(types []ast.TypeInit) ([]ast.TypeInit, error) {
	indices := make(map[string]int, len(types))
	for i := range types {
		indices[types[i].CppName] = i
	}
	if len(indices) != len(types) {
		return nil, fmt.Errorf("gen: duplicate type-object name in registration batch")
	}
	deps := make([]int, len(types))
	for i := range types {
		if types[i].PyBase != nil && types[i].WrappedBase != "" {
			return nil, fmt.Errorf("gen: %s declares both a foreign and a wrapped base", types[i].CppName)
		}
		base := types[i].WrappedBase
		if base == "" {
			deps[i] = NoDep
			continue
		}
		j, ok := indices[base]
		if !ok {
			return nil, fmt.Errorf("gen: missing import for a base class declared in another file:"+
				" wrapped_derived=%s, wrapped_base=%s", types[i].CppName, base)
		}
		deps[i] = j
	}
	perm, err := TopoSort(deps)
	if err != nil {
		return nil, err
	}
	sorted := make([]ast.TypeInit, len(types))
	for i, idx := range perm {
		sorted[i] = types[idx]
	}
	return sorted, nil
}

// Ready emits the Ready() function registering every wrapped type with the
// interpreter: heap-type construction, base linkage, PyType_Ready and
// module-ownership bookkeeping, in dependency order.
func (p *Planner) Ready(b *Builder, types []ast.TypeInit) error {
	sorted, err := SortTypeInits(types)
	if err != nil {
		return err
	}
	b.Blank()
	b.Line("bool Ready() {")
	b.Indent()
	haveModname := false
	for i := range sorted {
		t := &sorted[i]
		b.Line("%s =", t.CppName)
		b.Line("%s::_build_heap_type();", namespaceOf(t.CppName))
		switch {
		case t.PyBase != nil:
			p.emitForeignBase(b, t)
		case t.WrappedBase != "":
			b.Line("Py_INCREF(%s);", t.WrappedBase)
			b.Line("%s->tp_base = %s;", t.CppName, t.WrappedBase)
		}
		b.Line("if (PyType_Ready(%s) < 0) return false;", t.CppName)
		if !haveModname {
			b.Line("PyObject *modname = PyUnicode_FromString(ThisModuleName);")
			b.Line("if (modname == nullptr) return false;")
			haveModname = true
		}
		b.Line("PyObject_SetAttrString((PyObject *) %s, \"__module__\", modname);", t.CppName)
		b.Line("Py_INCREF(%s);  // For PyModule_AddObject to steal.", t.CppName)
	}
	b.Line("return true;")
	b.Dedent()
	b.Line("}")
	return nil
}

// emitForeignBase links a base class imported by qualified name. The import
// and its validation are emitted once per qualified name; later classes
// sharing the base reuse the cached base_cls handle.
func (p *Planner) emitForeignBase(b *Builder, t *ast.TypeInit) {
	base := t.PyBase
	key := base.FQName + "\x00" + base.TopLevel
	if key == p.lastPyBase {
		b.Line("Py_INCREF(base_cls);")
	} else {
		typePrefix := ""
		if len(p.pybases) == 0 {
			typePrefix = "PyObject* "
		}
		if base.TopLevel != "" {
			b.Line("%sbase_cls = ImportFQName(\"%s\", \"%s\");", typePrefix, base.FQName, base.TopLevel)
		} else {
			b.Line("%sbase_cls = ImportFQName(\"%s\");", typePrefix, base.FQName)
		}
	}
	if !p.pybases[key] {
		b.Line("if (base_cls == nullptr) return false;")
		b.Line("if (!PyObject_TypeCheck(base_cls, &PyType_Type)) {")
		b.Scope(func() {
			b.Line("Py_DECREF(base_cls);")
			b.Line("PyErr_SetString(PyExc_TypeError, \"Base class %s is not a "+
				"new style class inheriting from object.\");", base.FQName)
			b.Line("return false;")
		})
		b.Line("}")
	}
	b.Line("%s->tp_base = %s(base_cls);", t.CppName, cast("PyTypeObject"))
	if !p.pybases[key] {
		b.Line("// Check that base_cls is a *statically* allocated PyType.")
		b.Line("if (%s->tp_base->tp_alloc == PyType_GenericAlloc) {", t.CppName)
		b.Scope(func() {
			b.Line("Py_DECREF(base_cls);")
			b.Line("PyErr_SetString(PyExc_TypeError, \"Base class %s is a"+
				" dynamic (Python defined) class.\");", base.FQName)
			b.Line("return false;")
		})
		b.Line("}")
		p.lastPyBase = key
		p.pybases[key] = true
	}
}

// namespaceOf strips the last component of a qualified C++ name.
func namespaceOf(cppname string) string {
	for i := len(cppname) - 1; i > 0; i-- {
		if cppname[i] == ':' && cppname[i-1] == ':' {
			return cppname[:i-1]
		}
	}
	return cppname
}

// cast spells a reinterpret_cast to t*.
func cast(t string) string {
	return "reinterpret_cast<" + t + "*>"
}
