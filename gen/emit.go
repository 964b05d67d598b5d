package gen

import (
	"fmt"
	"strings"
)

// Version is the generated-API version stamped into the banner. Informative
// only.
const Version = "0.3"

// ---------------------------------------------------------------------------
// File scaffolding
// ---------------------------------------------------------------------------

// Headlines emits the header banner, includes and namespace opening.
// A leading "PYTHON" header means #include <Python.h>; a "PYOBJ" header
// forward-declares PyObject instead.
func Headlines(b *Builder, srcFile string, hdrFiles, sysHdrFiles []string, openNs string) {
	b.Line(strings.Repeat("/", 70))
	b.Line("// This file was automatically generated by CLIF.")
	b.Line("// Version %s", Version)
	b.Line(strings.Repeat("/", 70))
	if srcFile != "" {
		b.Line("// source: %s", srcFile)
	}
	b.Blank()
	pythonH := false
	if len(hdrFiles) > 0 && hdrFiles[0] == "PYTHON" {
		pythonH = true
		b.Line("#include <Python.h>")
		hdrFiles = hdrFiles[1:]
	}
	for _, h := range sysHdrFiles {
		if h != "" {
			b.Line("#include <%s>", h)
		}
	}
	for _, h := range hdrFiles {
		if h == "PYOBJ" && !pythonH {
			b.Blank()
			b.Line("// Forward \"declare\" PyObject (instead of #include <Python.h>)")
			b.Line("struct _object; typedef _object PyObject;")
		} else if h != "" {
			b.Line("#include \"%s\"", h)
		}
	}
	if openNs != "" {
		b.Blank()
		b.Line("%s", OpenNs(openNs))
	}
}

// OpenNs spells the namespace-opening line for a :: separated namespace.
func OpenNs(namespace string) string {
	namespace = nsOrDefault(namespace)
	parts := strings.Split(namespace, "::")
	opens := make([]string, len(parts))
	for i, ns := range parts {
		opens[i] = "namespace " + ns + " {"
	}
	return strings.Join(opens, " ")
}

// CloseNs spells the matching namespace-closing line.
func CloseNs(namespace string) string {
	namespace = nsOrDefault(namespace)
	n := strings.Count(namespace, "::") + 1
	return strings.Repeat("} ", n) + " // namespace " + namespace
}

func nsOrDefault(namespace string) string {
	if namespace == "" {
		namespace = "clif"
	}
	return strings.Trim(namespace, ":")
}

// TypeConverters opens the converter namespace, runs body, and closes it.
// Outside the default namespace the clif conversion entry points are pulled
// in by name.
func TypeConverters(b *Builder, typeNamespace string, body func(*Builder)) {
	typeNamespace = nsOrDefault(typeNamespace)
	b.Blank()
	b.Line("%s", OpenNs(typeNamespace))
	if typeNamespace != "clif" {
		b.Line("using namespace ::clif;")
		b.Line("using ::clif::Clif_PyObjAs;")
		b.Line("using ::clif::Clif_PyObjFrom;")
	}
	body(b)
	b.Blank()
	b.Line("%s", CloseNs(typeNamespace))
}

// ---------------------------------------------------------------------------
// Registration tables
// ---------------------------------------------------------------------------

// DefEntry is one row of a PyMethodDef/PyGetSetDef table.
type DefEntry struct {
	PyName string
	CName  string
	Meth   string
	Doc    string // empty means nullptr
}

func defLine(e DefEntry) string {
	cname := e.CName
	if strings.Contains(e.Meth, "KEYWORD") || strings.Contains(e.Meth, "NOARGS") {
		cname = "(PyCFunction)" + cname
	}
	doc := "nullptr"
	if e.Doc != "" {
		doc = fmt.Sprintf("%q", e.Doc)
	}
	return fmt.Sprintf("{%q, %s, %s, %s}", e.PyName, cname, e.Meth, doc)
}

func defTable(b *Builder, ctype, cname string, entries []DefEntry) {
	b.Line("static %s %s[] = {", ctype, cname)
	b.Scope(func() {
		for _, e := range entries {
			b.Line("%s,", defLine(e))
		}
		b.Line("{}")
	})
	b.Line("};")
}

// MethodTableName is the generated PyMethodDef table identifier.
const MethodTableName = "MethodsStaticAlloc"

// MethodDefTable emits the module/class method registration table.
func MethodDefTable(b *Builder, methods []DefEntry) {
	b.Blank()
	defTable(b, "PyMethodDef", MethodTableName, methods)
}

// GetSetDefTable emits the property registration table, prepending the
// __dict__ getset when the instance dict is enabled.
func GetSetDefTable(b *Builder, properties []DefEntry, enableInstanceDict bool) {
	if enableInstanceDict {
		properties = append([]DefEntry{{
			PyName: "__dict__",
			CName:  "pyclif_instance_dict_get",
			Meth:   "pyclif_instance_dict_set",
		}}, properties...)
	}
	defTable(b, "PyGetSetDef", "Properties", properties)
}

// FromFunctionDef emits the PyMethodDef for a std::function value exposed
// as a callable.
func FromFunctionDef(ctype, wdef, wname, flags, doc string) (string, error) {
	if !strings.HasPrefix(ctype, "std::function<") {
		return "", fmt.Errorf("gen: FromFunctionDef needs a std::function type, got %s", ctype)
	}
	return fmt.Sprintf("static PyMethodDef %s = %s;", wdef,
		defLine(DefEntry{CName: wname, Meth: flags, Doc: doc})), nil
}

// ---------------------------------------------------------------------------
// Wrapper struct
// ---------------------------------------------------------------------------

// WrapperClassDef emits the wrapper struct holding the Python object header
// and the wrapped C++ instance (or iterator).
func WrapperClassDef(b *Builder, name, ctype, cname string, isIter bool, hasIter, iterNs string, enableInstanceDict bool) {
	b.Blank()
	b.Line("struct %s {", name)
	b.Scope(func() {
		b.Line("PyObject_HEAD")
		if isIter {
			b.Line("iterator iter;")
		} else {
			b.Line("::clif::Instance<%s> cpp;", ctype)
			if enableInstanceDict {
				b.Line("PyObject* instance_dict = nullptr;")
			}
			b.Line("PyObject* weakrefs = nullptr;")
		}
	})
	b.Line("};")
	if hasIter != "" {
		b.Blank()
		b.Line("namespace %s {", iterNs)
		b.Line("typedef ::clif::Iterator<%s, %s> iterator;", cname, hasIter)
		b.Line("}")
	}
}

// ---------------------------------------------------------------------------
// Capsule cast
// ---------------------------------------------------------------------------

// CastAsCapsule emits the implicit-cast helper exposing the wrapped pointer
// as a named capsule.
func CastAsCapsule(b *Builder, wrappedCpp, pointerName, wrapper string) {
	b.Blank()
	b.Line("// Implicit cast this as %s*", pointerName)
	b.Line("static PyObject* %s(PyObject* self) {", wrapper)
	b.Scope(func() {
		b.Line("%s* p = ::clif::python::Get(%s);", pointerName, wrappedCpp)
		b.Line("if (p == nullptr) return nullptr;")
		b.Line("return PyCapsule_New(p, \"%s\", nullptr);", pointerName)
	})
	b.Line("}")
}

// ---------------------------------------------------------------------------
// Module creation
// ---------------------------------------------------------------------------

// InitFunction emits the PyModuleDef table and the Init() function adding
// the wrapped objects to the module. init statements must use "goto err;"
// for error handling so the module is released on any failure path.
func InitFunction(b *Builder, doc, methRef string, init []string, dict [][2]string) error {
	b.Blank()
	b.Line("static struct PyModuleDef Module = {")
	b.Scope(func() {
		b.Line("PyModuleDef_HEAD_INIT,")
		b.Line("ThisModuleName,")
		b.Line("\"%s\", // module doc", doc)
		b.Line("-1,  // module keeps state in global variables")
		b.Line("%s,", methRef)
		b.Line("nullptr,  // m_slots a.k.a. m_reload")
		b.Line("nullptr,  // m_traverse")
		b.Line("ClearImportCache  // m_clear")
	})
	b.Line("};")
	b.Blank()
	b.Line("PyObject* Init() {")
	b.Indent()
	b.Line("PyObject* module = PyModule_Create(&Module);")
	b.Line("if (!module) return nullptr;")
	initNeedsErr := false
	for _, s := range init {
		if strings.Contains(s, " return") {
			return fmt.Errorf("gen: init statement must use \"goto err;\" to handle errors: %s", s)
		}
		if strings.Contains(s, " err;") {
			initNeedsErr = true
		}
		b.Line("%s", s)
	}
	for _, pair := range dict {
		b.Line("if (PyModule_AddObject(module, \"%s\", %s) < 0) goto err;", pair[0], pair[1])
	}
	b.Line("return module;")
	b.Dedent()
	if initNeedsErr || len(dict) > 0 {
		b.Line("err:")
		b.Scope(func() {
			b.Line("Py_DECREF(module);")
			b.Line("return nullptr;")
		})
	}
	b.Line("}")
	return nil
}

// PyModInitFunction emits the extension entry point. Exactly one of
// initName and modname must be set.
func PyModInitFunction(b *Builder, initName, modname, ns string) error {
	if (initName == "") == (modname == "") {
		return fmt.Errorf("gen: PyModInitFunction needs exactly one of init name (%q) and module name (%q)",
			initName, modname)
	}
	name := initName
	if name == "" {
		name = "PyInit_" + modname
	}
	ns = nsOrDefault(ns)
	b.Blank()
	b.Line("PyMODINIT_FUNC %s(void) {", name)
	b.Scope(func() {
		b.Line("if (!%s::Ready()) return nullptr;", ns)
		b.Line("return %s::Init();", ns)
	})
	b.Line("}")
	return nil
}
