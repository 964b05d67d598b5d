package gen

import (
	"strings"
	"testing"
)

func TestBuilderIndentation(t *testing.T) {
	b := NewBuilder()
	b.Line("top {")
	b.Scope(func() {
		b.Line("inner")
		b.Scope(func() {
			b.Line("deep")
		})
	})
	b.Line("}")
	want := "top {\n  inner\n    deep\n}\n"
	if got := b.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuilderDedentBelowZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Dedent below zero must panic")
		}
	}()
	NewBuilder().Dedent()
}

func TestOpenCloseNs(t *testing.T) {
	tests := []struct {
		ns        string
		wantOpen  string
		wantClose string
	}{
		{"clif", "namespace clif {", "}  // namespace clif"},
		{"a::b::c", "namespace a { namespace b { namespace c {", "} } }  // namespace a::b::c"},
		{"", "namespace clif {", "}  // namespace clif"},
		{"::x::y", "namespace x { namespace y {", "} }  // namespace x::y"},
	}
	for _, tt := range tests {
		if got := OpenNs(tt.ns); got != tt.wantOpen {
			t.Errorf("OpenNs(%q) = %q, want %q", tt.ns, got, tt.wantOpen)
		}
		if got := CloseNs(tt.ns); got != tt.wantClose {
			t.Errorf("CloseNs(%q) = %q, want %q", tt.ns, got, tt.wantClose)
		}
	}
}

func TestDefLine(t *testing.T) {
	tests := []struct {
		entry DefEntry
		want  string
	}{
		{
			DefEntry{PyName: "get", CName: "wrapGet", Meth: "METH_NOARGS", Doc: "int Get()"},
			`{"get", (PyCFunction)wrapGet, METH_NOARGS, "int Get()"}`,
		},
		{
			DefEntry{PyName: "set", CName: "wrapSet", Meth: "METH_VARARGS | METH_KEYWORDS"},
			`{"set", (PyCFunction)wrapSet, METH_VARARGS | METH_KEYWORDS, nullptr}`,
		},
		{
			DefEntry{PyName: "size", CName: "get_size", Meth: "set_size"},
			`{"size", get_size, set_size, nullptr}`,
		},
	}
	for _, tt := range tests {
		if got := defLine(tt.entry); got != tt.want {
			t.Errorf("defLine(%v) = %q, want %q", tt.entry, got, tt.want)
		}
	}
}

func TestInitFunctionRejectsReturn(t *testing.T) {
	err := InitFunction(NewBuilder(), "doc", "nullptr",
		[]string{"if (!x) return nullptr;"}, nil)
	if err == nil {
		t.Error("init statement with return must be rejected")
	}
}

func TestInitFunctionErrLabel(t *testing.T) {
	b := NewBuilder()
	err := InitFunction(b, "doc", "MethodsStaticAlloc", nil,
		[][2]string{{"Thing", "(PyObject*)pyThing::wrapper_Type"}})
	if err != nil {
		t.Fatalf("InitFunction error: %v", err)
	}
	out := b.String()
	for _, want := range []string{
		"static struct PyModuleDef Module = {",
		"PyObject* module = PyModule_Create(&Module);",
		"if (PyModule_AddObject(module, \"Thing\", (PyObject*)pyThing::wrapper_Type) < 0) goto err;",
		"\nerr:\n",
		"Py_DECREF(module);",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPyModInitFunctionNameXor(t *testing.T) {
	if err := PyModInitFunction(NewBuilder(), "", "", "ns"); err == nil {
		t.Error("both names empty must be rejected")
	}
	if err := PyModInitFunction(NewBuilder(), "PyInit_x", "x", "ns"); err == nil {
		t.Error("both names set must be rejected")
	}
	b := NewBuilder()
	if err := PyModInitFunction(b, "", "thing", "my_ns"); err != nil {
		t.Fatalf("PyModInitFunction error: %v", err)
	}
	if !strings.Contains(b.String(), "PyMODINIT_FUNC PyInit_thing(void) {") {
		t.Errorf("unexpected entry point:\n%s", b.String())
	}
}

func TestTypeObjectDtorLock(t *testing.T) {
	emit := func(trivial bool, iter string) string {
		b := NewBuilder()
		tobj := &TypeObject{
			HtQualname:  "Thing",
			PyName:      "Thing",
			WrapperName: "wrapper",
			FQClassName: "::Thing",
			TrivialDtor: trivial,
			Iterator:    iter,
		}
		tobj.Emit(b)
		return b.String()
	}

	if out := emit(true, ""); strings.Contains(out, "Py_BEGIN_ALLOW_THREADS") {
		t.Error("trivial destructor must not release the lock")
	}
	if out := emit(false, ""); !strings.Contains(out, "Py_BEGIN_ALLOW_THREADS") {
		t.Error("non-trivial destructor must release the lock")
	}
	out := emit(true, "reinterpret_cast<wrapper*>(self)->iter")
	if !strings.Contains(out, "Py_BEGIN_ALLOW_THREADS") {
		t.Error("iterator destruction must release the lock")
	}
	if !strings.Contains(out, "reinterpret_cast<wrapper*>(self)->iter.~iterator();") {
		t.Errorf("iterator dtor missing:\n%s", out)
	}
}

func TestTypeObjectInconstructible(t *testing.T) {
	b := NewBuilder()
	tobj := &TypeObject{
		HtQualname:  "Opaque",
		PyName:      "Opaque",
		WrapperName: "wrapper",
		FQClassName: "::Opaque",
		TrivialDtor: true,
	}
	tobj.Emit(b)
	out := b.String()
	if !strings.Contains(out, "ty->tp_init = Clif_PyType_Inconstructible;") {
		t.Errorf("output missing inconstructible tp_init:\n%s", out)
	}
	if strings.Contains(out, "static int _ctor") {
		t.Error("no _ctor may be emitted without a constructor")
	}
}

func TestTypeConverters(t *testing.T) {
	b := NewBuilder()
	TypeConverters(b, "my_ns", func(b *Builder) {
		b.Line("// body")
	})
	out := b.String()
	for _, want := range []string{
		"namespace my_ns {",
		"using namespace ::clif;",
		"// body",
		"}  // namespace my_ns",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	b = NewBuilder()
	TypeConverters(b, "clif", func(b *Builder) {})
	if strings.Contains(b.String(), "using namespace ::clif;") {
		t.Error("default namespace must not pull in itself")
	}
}

func TestCastAsCapsule(t *testing.T) {
	b := NewBuilder()
	CastAsCapsule(b, "reinterpret_cast<wrapper*>(self)->cpp", "::Thing", "as_Thing")
	out := b.String()
	for _, want := range []string{
		"static PyObject* as_Thing(PyObject* self) {",
		"::Thing* p = ::clif::python::Get(reinterpret_cast<wrapper*>(self)->cpp);",
		"return PyCapsule_New(p, \"::Thing\", nullptr);",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFromFunctionDef(t *testing.T) {
	got, err := FromFunctionDef("std::function<int (int)>", "Def", "wrapCall",
		"METH_VARARGS | METH_KEYWORDS", "calls the wrapped function")
	if err != nil {
		t.Fatalf("FromFunctionDef error: %v", err)
	}
	want := `static PyMethodDef Def = {"", (PyCFunction)wrapCall, METH_VARARGS | METH_KEYWORDS, "calls the wrapped function"};`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if _, err := FromFunctionDef("int", "Def", "wrapCall", "METH_NOARGS", ""); err == nil {
		t.Error("non-std::function type must be rejected")
	}
}

func TestWrapperNames(t *testing.T) {
	tests := []struct{ in, want string }{
		{"lookup", "wrapLookup"},
		{"__init__", "wrapInit__"},
		{"__enter__@", "wrapEnter__"},
		{"operator()", "wrapOperator_call"},
		{"___", "wrapSpecial"},
	}
	for _, tt := range tests {
		if got := WrapperName(tt.in); got != tt.want {
			t.Errorf("WrapperName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
