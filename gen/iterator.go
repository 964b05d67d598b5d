package gen

// ---------------------------------------------------------------------------
// Iterator protocol: allocation and the next step
// ---------------------------------------------------------------------------

// NewIterName and IterNextName are the function names the slot table binds.
const (
	NewIterName  = "new_iter"
	IterNextName = "iternext"
)

// NewIter emits the function allocating the iterator wrapper over a wrapped
// container instance.
func NewIter(b *Builder, wrappedIter, ns, wrapper, wrapperType string) {
	b.Blank()
	b.Line("PyObject* new_iter(PyObject* self) {")
	b.Scope(func() {
		b.Line("if (!ThisPtr(self)) return nullptr;")
		b.Line("%s* it = PyObject_New(%s, %s);", wrapper, wrapper, wrapperType)
		b.Line("if (!it) return nullptr;")
		b.Line("using std::equal_to;  // Often a default template argument.")
		b.Line("new(&it->iter) %siterator(MakeStdShared(%s));", ns, wrappedIter)
		b.Line("return %s(it);", cast("PyObject"))
	})
	b.Line("}")
}

// IterNext emits the tp_iternext implementation. When the underlying
// advance can block, the interpreter lock is released around it. Exhaustion
// is a nullptr return with no error set, which the interpreter turns into
// StopIteration.
func IterNext(b *Builder, wrappedIter string, async bool, postconversion string) {
	b.Blank()
	b.Line("PyObject* iternext(PyObject* self) {")
	b.Scope(func() {
		if async {
			b.Line("PyThreadState* _save;")
			b.Line("Py_UNBLOCK_THREADS")
		}
		b.Line("auto* v = %s.Next();", wrappedIter)
		if async {
			b.Line("Py_BLOCK_THREADS")
		}
		b.Line("return v? Clif_PyObjFrom(*v, %s): nullptr;", postconversion)
	})
	b.Line("}")
}
