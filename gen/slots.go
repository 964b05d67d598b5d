package gen

import (
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Type object construction
// ---------------------------------------------------------------------------

// SlotEmitter is the boundary to the slot-table generator: given the
// computed slot values for a type under construction (available as the
// local "ty"), it emits the lines binding them. The full slot-table
// machinery lives outside this package.
type SlotEmitter interface {
	HeapTypeSlots(b *Builder, slots map[string]string)
}

// DefaultSlotEmitter assigns every computed slot value directly onto ty, in
// deterministic order.
type DefaultSlotEmitter struct{}

// HeapTypeSlots implements SlotEmitter.
func (DefaultSlotEmitter) HeapTypeSlots(b *Builder, slots map[string]string) {
	keys := make([]string, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.Line("ty->%s = %s;", k, slots[k])
	}
}

// CtorDefault marks a generated default constructor in TypeObject.Ctor; any
// other non-empty value names the wrapping __init__ implementation.
const CtorDefault = "DEF"

// TypeObject emits the PyTypeObject builder and the tp_alloc / tp_init /
// tp_dealloc / tp_free methods for one wrapped class.
type TypeObject struct {
	// HtQualname is the Python qualified name, e.g. "Outer.Inner".
	HtQualname string
	// PyName is the Python class name.
	PyName string
	// Ctor is empty for inconstructible types, CtorDefault for a
	// generated default constructor, or the __init__ wrapper name.
	Ctor string
	// WrapperName is the generated wrapper struct.
	WrapperName string
	// FQClassName is the wrapped C++ class.
	FQClassName string
	// Abstract blocks direct instantiation of the wrapped type.
	Abstract bool
	// Iterator is the C++ iterator member expression when wrapping an
	// __iter__ class, empty otherwise.
	Iterator string
	// TrivialDtor skips the lock release around destruction: a trivial
	// destructor cannot block.
	TrivialDtor bool
	// SubstCppPtr is the redirector replacement class, if any.
	SubstCppPtr string
	// EnableInstanceDict adds __dict__ to instances.
	EnableInstanceDict bool
	// CppHasExtDefCtor marks an extended default constructor taking no
	// Python arguments.
	CppHasExtDefCtor bool

	// Slots carries the slot values computed by the caller; Emit adds
	// the structural ones (tp_alloc, tp_init, tp_dealloc, ...).
	Slots map[string]string
	// Flags are the tp_flags components, |-joined on emission.
	Flags []string

	SlotTable SlotEmitter
}

// Emit writes the type-object definitions to b.
func (t *TypeObject) Emit(b *Builder) {
	slots := t.Slots
	if slots == nil {
		slots = make(map[string]string)
	}
	isIter := t.Iterator != ""
	wname := t.WrapperName
	wtype := wname + "_Type"

	if t.Ctor != "" {
		b.Blank()
		b.Line("// %s __init__", t.PyName)
		b.Line("static int _ctor(PyObject* self, PyObject* args, PyObject* kw);")
	}
	if !isIter {
		b.Blank()
		b.Line("// %s __new__", t.PyName)
		b.Line("static PyObject* _new(PyTypeObject* type, Py_ssize_t nitems);")
		slots["tp_alloc"] = "_new"
		slots["tp_new"] = "PyType_GenericNew"
	}

	b.Blank()
	b.Line("// %s __del__", t.PyName)
	// The dtor must run the C++ destructors even for dynamic (derived)
	// types, whose storage tp_free releases.
	slots["tp_dealloc"] = "_dtor"
	b.Line("static void _dtor(PyObject* self) {")
	b.Indent()
	if !isIter {
		b.Line("if (%s(self)->weakrefs) {", cast(wname))
		b.Scope(func() {
			b.Line("PyObject_ClearWeakRefs(self);")
		})
		b.Line("}")
	}
	if isIter || !t.TrivialDtor {
		b.Line("Py_BEGIN_ALLOW_THREADS")
	}
	if isIter {
		b.Line("%s.~iterator();", t.Iterator)
	} else {
		// ~Instance() here runs into heap-use-after-free; Destruct()
		// tears down the held object without releasing the slot.
		b.Line("%s(self)->cpp.Destruct();", cast(wname))
	}
	if isIter || !t.TrivialDtor {
		b.Line("Py_END_ALLOW_THREADS")
	}
	if !isIter && t.EnableInstanceDict {
		b.Line("Py_CLEAR(%s(self)->instance_dict);", cast(wname))
	}
	b.Line("Py_TYPE(self)->tp_free(self);")
	b.Dedent()
	b.Line("}")

	if !isIter {
		// delete pairs with the operator-new allocation in _new.
		slots["tp_free"] = "_del"
		b.Blank()
		b.Line("static void _del(void* self) {")
		b.Scope(func() {
			b.Line("delete %s(self);", cast(wname))
		})
		b.Line("}")
	}

	if t.Ctor != "" {
		slots["tp_init"] = "_ctor"
	} else {
		slots["tp_init"] = "Clif_PyType_Inconstructible"
	}
	slots["tp_basicsize"] = "sizeof(" + wname + ")"
	slots["tp_itemsize"] = "0"
	slots["tp_version_tag"] = "0"
	slots["tp_dictoffset"] = "0"
	slots["tp_weaklistoffset"] = "0"
	if len(t.Flags) > 0 {
		slots["tp_flags"] = strings.Join(t.Flags, " | ")
	}
	if slots["tp_doc"] == "" {
		slots["tp_doc"] = "\"CLIF wrapper for " + t.FQClassName + "\""
	}

	b.Blank()
	b.Line("PyTypeObject* %s = nullptr;", wtype)
	b.Blank()
	b.Line("static PyTypeObject* _build_heap_type() {")
	b.Indent()
	b.Line("PyHeapTypeObject *heap_type =")
	b.Scope(func() {
		b.Scope(func() {
			b.Line("(PyHeapTypeObject *) PyType_Type.tp_alloc(&PyType_Type, 0);")
		})
	})
	b.Line("if (!heap_type)")
	b.Scope(func() {
		b.Line("return nullptr;")
	})
	b.Line("heap_type->ht_qualname = (PyObject *) PyUnicode_FromString(")
	b.Scope(func() {
		b.Scope(func() {
			b.Line("\"%s\");", t.HtQualname)
		})
	})
	b.Line("Py_INCREF(heap_type->ht_qualname);")
	b.Line("heap_type->ht_name = heap_type->ht_qualname;")
	b.Line("PyTypeObject *ty = &heap_type->ht_type;")
	b.Line("ty->tp_as_number = &heap_type->as_number;")
	b.Line("ty->tp_as_sequence = &heap_type->as_sequence;")
	b.Line("ty->tp_as_mapping = &heap_type->as_mapping;")
	b.Line("ty->tp_as_async = &heap_type->as_async;")
	slotTable := t.SlotTable
	if slotTable == nil {
		slotTable = DefaultSlotEmitter{}
	}
	slotTable.HeapTypeSlots(b, slots)
	if !isIter {
		if t.EnableInstanceDict {
			b.Line("pyclif_instance_dict_enable(ty, offsetof(%s, instance_dict));", wname)
		}
		b.Line("ty->tp_weaklistoffset = offsetof(%s, weakrefs);", wname)
	}
	b.Line("return ty;")
	b.Dedent()
	b.Line("}")

	if t.Ctor != "" {
		t.emitCtor(b, wtype)
	}
	if !isIter {
		b.Blank()
		b.Line("static PyObject* _new(PyTypeObject* type, Py_ssize_t nitems) {")
		b.Scope(func() {
			b.Line("DCHECK(nitems == 0);")
			b.Line("%s* wobj = new %s;", wname, wname)
			if t.EnableInstanceDict {
				b.Line("wobj->instance_dict = nullptr;")
			}
			b.Line("PyObject* self = %s(wobj);", cast("PyObject"))
			b.Line("return PyObject_Init(self, %s);", wtype)
		})
		b.Line("}")
	}
}

func (t *TypeObject) emitCtor(b *Builder, wtype string) {
	b.Blank()
	b.Line("static int _ctor(PyObject* self, PyObject* args, PyObject* kw) {")
	b.Indent()
	if t.Abstract {
		b.Line("if (Py_TYPE(self) == %s) {", wtype)
		b.Scope(func() {
			b.Line("return Clif_PyType_Inconstructible(self, args, kw);")
		})
		b.Line("}")
	}
	cpp := cast(t.WrapperName) + "(self)->cpp"
	noArgsGuard := func() {
		b.Line("if ((args && PyTuple_GET_SIZE(args) != 0) || (kw && PyDict_Size(kw) != 0)) {")
		b.Scope(func() {
			b.Line("PyErr_SetString(PyExc_TypeError, \"%s takes no arguments\");", t.PyName)
			b.Line("return -1;")
		})
		b.Line("}")
	}
	if t.Ctor == CtorDefault {
		noArgsGuard()
		// The NULL-initialized Instance from PyType_GenericAlloc is
		// equivalent to a default-constructed one, and __init__ may run
		// more than once, so assign rather than placement-new.
		target := t.SubstCppPtr
		if target == "" {
			target = t.FQClassName
		}
		b.Line("%s = ::clif::MakeShared<%s>();", cpp, target)
		if t.SubstCppPtr != "" {
			b.Line("%s->::clif::PyObjRef::Init(self);", cpp)
		}
		b.Line("return 0;")
	} else {
		if t.CppHasExtDefCtor {
			noArgsGuard()
			b.Line("PyObject* init = %s(self);", t.Ctor)
		} else {
			b.Line("PyObject* init = %s(self, args, kw);", t.Ctor)
		}
		if t.SubstCppPtr != "" {
			b.Line("if (!init) return -1;")
			b.Line("Py_DECREF(init);")
			b.Line("%s->::clif::PyObjRef::Init(self);", cpp)
			b.Line("return 0;")
		} else {
			b.Line("Py_XDECREF(init);")
			b.Line("return init? 0: -1;")
		}
	}
	b.Dedent()
	b.Line("}")
}
